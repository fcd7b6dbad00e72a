package price

import (
	"fmt"
	"strconv"
	"time"
)

// KeyKind tells which granularity a Key carries.
type KeyKind int

const (
	KindHeight KeyKind = iota + 1
	KindDate
	KindDay
)

const (
	dateLayout    = "2-1-2006"
	secondsPerDay = 24 * 60 * 60
)

// Key identifies a price in the store: a block height, a D-M-YYYY UTC date or
// a day-aligned epoch in seconds. Keys are comparable and usable as map keys.
type Key struct {
	kind   KeyKind
	height uint64
	date   string
	day    int64
}

// HeightKey keys a price by ledger block height.
func HeightKey(height uint64) Key {
	return Key{kind: KindHeight, height: height}
}

// DateKey keys a price by the UTC calendar date of t, formatted D-M-YYYY.
func DateKey(t time.Time) Key {
	return Key{kind: KindDate, date: t.UTC().Format(dateLayout)}
}

// ParseDateKey parses a D-M-YYYY date into a Key.
func ParseDateKey(s string) (Key, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Key{}, fmt.Errorf("parse date key %q: %w", s, err)
	}
	return DateKey(t), nil
}

// DayKey keys a price by the start of the UTC day containing t, in epoch seconds.
func DayKey(t time.Time) Key {
	return DayKeyFromEpoch(t.Unix())
}

// DayKeyFromEpoch truncates epoch seconds to the start of their UTC day.
func DayKeyFromEpoch(seconds int64) Key {
	day := seconds / secondsPerDay
	if seconds < 0 && seconds%secondsPerDay != 0 {
		day--
	}
	return Key{kind: KindDay, day: day * secondsPerDay}
}

// Kind returns the key granularity.
func (k Key) Kind() KeyKind {
	return k.kind
}

// Height returns the block height of a height key.
func (k Key) Height() (uint64, bool) {
	return k.height, k.kind == KindHeight
}

// Date returns the D-M-YYYY string of a date key.
func (k Key) Date() (string, bool) {
	return k.date, k.kind == KindDate
}

// Day returns the day start in epoch seconds of a day key.
func (k Key) Day() (int64, bool) {
	return k.day, k.kind == KindDay
}

// IsZero reports whether the key was never set.
func (k Key) IsZero() bool {
	return k.kind == 0
}

func (k Key) String() string {
	switch k.kind {
	case KindHeight:
		return "block:" + strconv.FormatUint(k.height, 10)
	case KindDate:
		return "date:" + k.date
	case KindDay:
		return "day:" + strconv.FormatInt(k.day, 10)
	default:
		return "none"
	}
}
