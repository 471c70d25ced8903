package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/erain9/crossbook/pkg/engine"
	"github.com/erain9/crossbook/pkg/logging"
	"github.com/nikolaydubina/fpdecimal"
)

// Service exposes the matching engine over HTTP and websocket
type Service struct {
	engine *engine.Engine
	hub    *Hub
}

// NewService creates a Service around a running engine. The hub may be
// nil when websocket streaming is not wanted.
func NewService(eng *engine.Engine, hub *Hub) *Service {
	return &Service{engine: eng, hub: hub}
}

// Hub returns the websocket hub, or nil
func (s *Service) Hub() *Hub {
	return s.hub
}

// Routes returns the HTTP handler for the service
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.handleSubmitOrder)
	mux.HandleFunc("/orderbook/top", s.handleTopOfBook)
	mux.HandleFunc("/matches", s.handleMatchHistory)
	mux.HandleFunc("/matches/latest", s.handleLatestMatches)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleStream)
	}
	return logging.Middleware(mux)
}

type submitOrderRequest struct {
	Side   string `json:"side"`
	Price  string `json:"price"`
	Amount int64  `json:"amount"`
}

type submitOrderResponse struct {
	OrderID string `json:"orderId"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

func (s *Service) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	price, err := fpdecimal.FromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid price %q: %w", req.Price, err))
		return
	}

	order, err := s.engine.Submit(r.Context(), side, price, req.Amount)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitOrderResponse{
		OrderID: order.ID(),
		Side:    order.Side().String(),
		Price:   order.Price().String(),
		Amount:  order.Amount(),
		Status:  "accepted",
	})
}

func (s *Service) handleTopOfBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	n, err := parseLimit(r, core.DefaultTopLevels)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	top, err := s.engine.TopOfBook(n)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, top)
}

func (s *Service) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matches": s.engine.MatchHistory(),
	})
}

func (s *Service) handleLatestMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	n, err := parseLimit(r, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	matches, err := s.engine.LatestMatches(n)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"queueDepth": s.engine.QueueDepth(),
	})
}

func parseSide(value string) (core.Side, error) {
	switch strings.ToLower(value) {
	case "buy", "bid", "b":
		return core.Buy, nil
	case "sell", "ask", "s":
		return core.Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidSide, value)
	}
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidLimit, raw)
	}
	return n, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrEngineStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrSubmissionCanceled):
		return http.StatusRequestTimeout
	case errors.Is(err, core.ErrInvalidSide),
		errors.Is(err, core.ErrInvalidPrice),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
