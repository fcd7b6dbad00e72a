// Package ledger builds ledger API URLs and decodes its answers.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
)

// DefaultBaseURL is the public ledger API.
const DefaultBaseURL = "https://api.helium.io"

const cursorParam = "cursor"

// RewardsURL returns the first page URL of the account rewards listing for [start, end).
func RewardsURL(baseURL, address string, start, end time.Time) string {
	params := url.Values{}
	params.Set("max_time", end.UTC().Format(time.RFC3339))
	params.Set("min_time", start.UTC().Format(time.RFC3339))
	return base(baseURL) + "/v1/accounts/" + url.PathEscape(address) + "/rewards?" + params.Encode()
}

// NextPageURL returns pageURL with its cursor replaced by cursor.
func NextPageURL(pageURL, cursor string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	params := u.Query()
	params.Set(cursorParam, cursor)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// HotspotURL returns the URL describing a gateway.
func HotspotURL(baseURL, gateway string) string {
	return base(baseURL) + "/v1/hotspots/" + url.PathEscape(gateway)
}

// ParsePage decodes one page of the rewards listing.
func ParsePage(body []byte) (model.RewardPage, error) {
	var page model.RewardPage
	if err := json.Unmarshal(body, &page); err != nil {
		return model.RewardPage{}, fmt.Errorf("decode rewards page: %w", err)
	}
	return page, nil
}

type hotspotResponse struct {
	Data *model.Gateway `json:"data"`
}

// ParseGateway decodes a hotspot answer. An empty name maps to the unknown placeholder.
func ParseGateway(body []byte) (model.Gateway, error) {
	var resp hotspotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Gateway{}, fmt.Errorf("decode hotspot: %w", err)
	}
	if resp.Data == nil || resp.Data.Address == "" {
		return model.Gateway{}, errors.New("decode hotspot: missing address")
	}
	gw := *resp.Data
	if gw.Name == "" {
		gw.Name = model.UnknownGatewayName
	}
	return gw, nil
}

func base(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return DefaultBaseURL
	}
	return baseURL
}
