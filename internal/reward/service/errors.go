package service

import "errors"

var (
	// ErrRunHalted is returned when a queue of the run halted; no rows are produced.
	ErrRunHalted = errors.New("reward run halted")
	// ErrRunSuperseded is returned when a newer Collect on the same collector replaced the run.
	ErrRunSuperseded = errors.New("reward run superseded")
)
