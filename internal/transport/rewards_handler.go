// Package transport exposes the rewards HTTP API.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/export"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/service"
	"go.uber.org/zap"
)

const (
	routeRewards    = "/v1/rewards"
	routeRewardsCSV = "/v1/rewards.csv"
	routeHealth     = "/healthz"
	maxPrecision    = 18
)

var errBadRequest = errors.New("bad request")

// RewardsHandler serves reward exports. Every request gets its own collector.
type RewardsHandler struct {
	newCollector CollectorFactory
	defaults     service.Config
	metrics      Metrics
	logger       *zap.Logger
}

// NewRewardsHandler returns a handler. defaults supplies everything a request
// does not override: base URLs, retry limit, pacing and default precision.
func NewRewardsHandler(newCollector CollectorFactory, defaults service.Config, metrics Metrics, logger *zap.Logger) *RewardsHandler {
	return &RewardsHandler{
		newCollector: newCollector,
		defaults:     defaults,
		metrics:      metrics,
		logger:       logger.Named("rewards_handler"),
	}
}

// Register mounts the handler routes on mux.
func (h *RewardsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routeRewards, h.observe(routeRewards, h.rewardsJSON))
	mux.HandleFunc("GET "+routeRewardsCSV, h.observe(routeRewardsCSV, h.rewardsCSV))
	mux.HandleFunc("GET "+routeHealth, h.observe(routeHealth, h.health))
}

type rewardRow struct {
	Timestamp      time.Time `json:"timestamp"`
	Account        string    `json:"account"`
	Gateway        string    `json:"gateway"`
	GatewayName    string    `json:"gateway_name"`
	Block          uint64    `json:"block"`
	Type           string    `json:"type"`
	Hash           string    `json:"hash"`
	Amount         string    `json:"amount"`
	Price          string    `json:"price"`
	Value          string    `json:"value"`
	PriceAvailable bool      `json:"price_available"`
}

type rewardsResponse struct {
	Address     string      `json:"address"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	PriceSource string      `json:"price_source"`
	Currency    string      `json:"currency"`
	Precision   int32       `json:"precision"`
	Rows        []rewardRow `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type query struct {
	req      service.Request
	cfg      service.Config
	currency string
}

func (h *RewardsHandler) rewardsJSON(w http.ResponseWriter, r *http.Request) int {
	q, rows, status, err := h.collect(r)
	if err != nil {
		return h.writeError(w, status, err)
	}

	resp := rewardsResponse{
		Address:     q.req.Address,
		Start:       q.req.Start,
		End:         q.req.End,
		PriceSource: string(q.cfg.Price.Source),
		Currency:    q.currency,
		Precision:   q.cfg.Precision,
		Rows:        make([]rewardRow, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, rewardRow{
			Timestamp:      row.Timestamp.UTC(),
			Account:        row.Account,
			Gateway:        row.Gateway,
			GatewayName:    row.GatewayName,
			Block:          row.Block,
			Type:           row.Type,
			Hash:           row.Hash,
			Amount:         row.Amount.String(),
			Price:          row.Price.StringFixed(q.cfg.Precision),
			Value:          row.Value.StringFixed(q.cfg.Precision),
			PriceAvailable: row.PriceAvailable,
		})
	}
	return h.writeJSON(w, http.StatusOK, resp)
}

func (h *RewardsHandler) rewardsCSV(w http.ResponseWriter, r *http.Request) int {
	q, rows, status, err := h.collect(r)
	if err != nil {
		return h.writeError(w, status, err)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=rewards-%s.csv", q.req.Address))
	w.WriteHeader(http.StatusOK)
	opts := export.Options{Source: q.cfg.Price.Source, Currency: q.currency, Precision: q.cfg.Precision}
	if err := export.WriteCSV(w, rows, opts); err != nil {
		h.logger.Warn("write csv response", zap.Error(err))
	}
	return http.StatusOK
}

func (h *RewardsHandler) health(w http.ResponseWriter, _ *http.Request) int {
	return h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RewardsHandler) collect(r *http.Request) (query, []model.JoinedRow, int, error) {
	q, err := h.parse(r)
	if err != nil {
		return q, nil, http.StatusBadRequest, err
	}

	collector, err := h.newCollector(q.cfg)
	if err != nil {
		return q, nil, http.StatusBadRequest, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	rows, err := collector.Collect(r.Context(), q.req)
	if err != nil {
		return q, nil, statusFor(err), err
	}
	return q, rows, http.StatusOK, nil
}

func (h *RewardsHandler) parse(r *http.Request) (query, error) {
	values := r.URL.Query()
	q := query{cfg: h.defaults}

	q.req.Address = strings.TrimSpace(values.Get("address"))
	if q.req.Address == "" {
		return q, fmt.Errorf("%w: address is required", errBadRequest)
	}

	var err error
	if q.req.Start, err = parseTime(values.Get("start")); err != nil {
		return q, fmt.Errorf("%w: start: %w", errBadRequest, err)
	}
	if q.req.End, err = parseTime(values.Get("end")); err != nil {
		return q, fmt.Errorf("%w: end: %w", errBadRequest, err)
	}

	if raw := values.Get("price_source"); raw != "" {
		source, err := model.ParsePriceSource(raw)
		if err != nil {
			return q, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		q.cfg.Price.Source = source
	}
	if q.cfg.Price.Source == "" {
		q.cfg.Price.Source = model.SourceOracle
	}
	if raw := values.Get("currency"); raw != "" {
		q.cfg.Price.Currency = raw
	}
	q.currency, _ = q.cfg.Price.Source.ResolveCurrency(q.cfg.Price.Currency)

	if raw := values.Get("precision"); raw != "" {
		precision, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || precision < 0 || precision > maxPrecision {
			return q, fmt.Errorf("%w: precision must be between 0 and %d", errBadRequest, maxPrecision)
		}
		q.cfg.Precision = int32(precision)
	}
	return q, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRunHalted):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, service.ErrRunSuperseded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (h *RewardsHandler) writeError(w http.ResponseWriter, status int, err error) int {
	if status >= http.StatusInternalServerError {
		h.logger.Warn("rewards request failed", zap.Int("status", status), zap.Error(err))
	}
	return h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *RewardsHandler) writeJSON(w http.ResponseWriter, status int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write json response", zap.Error(err))
	}
	return status
}

func (h *RewardsHandler) observe(route string, next func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		status := next(w, r)
		h.metrics.Observe(route, status, started)
	}
}
