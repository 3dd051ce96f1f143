package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/completion"
	"github.com/Beto0829/Barber-ticket/internal/docstore"
	"github.com/Beto0829/Barber-ticket/internal/ledger"
	"github.com/Beto0829/Barber-ticket/internal/models"
	"github.com/Beto0829/Barber-ticket/internal/queue"
	"github.com/Beto0829/Barber-ticket/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type TicketQueue interface {
	ListPending(ctx context.Context) ([]models.Ticket, error)
	Enqueue(ctx context.Context, name string) (models.Ticket, error)
	FindTicketNumber(ctx context.Context, name string) (int, bool, error)
	CurrentlyServing(ctx context.Context) (int, bool, error)
	Board(ctx context.Context) (models.Board, error)
}

type Completer interface {
	Complete(ctx context.Context, number int, price float64) (models.Ticket, error)
}

type Ledger interface {
	Location() *time.Location
	ParseDate(value string) (time.Time, error)
	ServedOn(ctx context.Context, dateKey string) (models.DayHistory, error)
	DailyRange(ctx context.Context, from, to time.Time) ([]ledger.DaySummary, error)
	Monthly(ctx context.Context, year int) ([]ledger.MonthSummary, error)
	CompletedTickets(ctx context.Context, from, to time.Time) ([]models.Ticket, error)
}

type Sessions interface {
	Login(ctx context.Context, pin string) (session.Session, error)
	Validate(ctx context.Context, id string) (session.Session, error)
	Logout(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

type Handler struct {
	queue     TicketQueue
	completer Completer
	ledger    Ledger
	sessions  Sessions
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

type Options struct {
	Publisher Publisher
	Now       func() time.Time
	Logger    *zap.Logger
}

type createTicketRequest struct {
	Name string `json:"name"`
}

type loginRequest struct {
	PIN string `json:"pin"`
}

type loginResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type completeRequest struct {
	ServicePrice *float64 `json:"service_price"`
}

type lookupResponse struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

type servingResponse struct {
	Number int `json:"number"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(q TicketQueue, completer Completer, l Ledger, sessions Sessions, options Options) *Handler {
	h := &Handler{
		queue:     q,
		completer: completer,
		ledger:    l,
		sessions:  sessions,
		publisher: options.Publisher,
		now:       options.Now,
		logger:    options.Logger,
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/lookup", h.handleLookup)
	mux.HandleFunc("/api/tickets/serving", h.handleServing)
	mux.HandleFunc("/api/admin/login", h.handleLogin)
	mux.HandleFunc("/api/admin/logout", h.handleLogout)
	mux.HandleFunc("/api/admin/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/admin/history", h.handleHistory)
	mux.HandleFunc("/api/admin/finance/daily", h.handleFinanceDaily)
	mux.HandleFunc("/api/admin/finance/monthly", h.handleFinanceMonthly)
	mux.HandleFunc("/api/admin/finance/export", h.handleFinanceExport)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tickets, err := h.queue.ListPending(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tickets)
	case http.MethodPost:
		var req createTicketRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		ticket, err := h.queue.Enqueue(r.Context(), req.Name)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.publishBoard(r.Context())
		writeJSON(w, http.StatusCreated, ticket)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	number, found, err := h.queue.FindTicketNumber(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "ticket_not_found", "no pending ticket for that name")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Name: name, Number: number})
}

func (h *Handler) handleServing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	number, found, err := h.queue.CurrentlyServing(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, servingResponse{Number: number})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	s, err := h.sessions.Login(r.Context(), strings.TrimSpace(req.PIN))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{SessionID: s.ID, ExpiresAt: s.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.sessions.Logout(r.Context(), s.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTicketActions serves /api/admin/tickets/{number}/complete.
func (h *Handler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "complete" {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "route not found")
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	number, err := strconv.Atoi(parts[0])
	if err != nil || number <= 0 {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "ticket number must be a positive integer")
		return
	}

	var req completeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.ServicePrice == nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "service_price is required")
		return
	}

	ticket, err := h.completer.Complete(r.Context(), number, *req.ServicePrice)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	dateKey := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateKey == "" {
		dateKey = models.DateKey(h.now(), h.ledger.Location())
	} else if _, err := h.ledger.ParseDate(dateKey); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.ledger.ServedOn(r.Context(), dateKey)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *Handler) handleFinanceDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	days, err := h.ledger.DailyRange(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *Handler) handleFinanceMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	year := h.now().In(h.ledger.Location()).Year()
	if value := strings.TrimSpace(r.URL.Query().Get("year")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 || parsed > 9999 {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "year must be between 1 and 9999")
			return
		}
		year = parsed
	}
	months, err := h.ledger.Monthly(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (h *Handler) handleFinanceExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}
	tickets, err := h.ledger.CompletedTickets(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	loc := h.ledger.Location()
	filename := fmt.Sprintf("barberq-%s-%s.csv", models.DateKey(from, loc), models.DateKey(to, loc))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	records := make([][]string, 0, len(tickets)+1)
	records = append(records, []string{"date", "ticket_id", "number", "name", "created_at", "completed_at", "service_price"})
	for _, ticket := range tickets {
		date, completedAt, price := "", "", ""
		if ticket.CompletedAt != nil {
			date = models.DateKey(*ticket.CompletedAt, loc)
			completedAt = ticket.CompletedAt.UTC().Format(time.RFC3339)
		}
		if ticket.ServicePrice != nil {
			price = strconv.FormatFloat(*ticket.ServicePrice, 'f', 2, 64)
		}
		records = append(records, []string{
			date,
			ticket.ID,
			strconv.Itoa(ticket.Number),
			ticket.Name,
			ticket.CreatedAt.UTC().Format(time.RFC3339),
			completedAt,
			price,
		})
	}
	// Headers are already sent, so a failed write can only be logged.
	if err := csv.NewWriter(w).WriteAll(records); err != nil {
		h.logger.Error("finance export truncated",
			zap.String("request_id", requestIDFromRequest(r)),
			zap.Int("rows", len(tickets)),
			zap.Error(err),
		)
	}
}

// parseRange reads from/to date keys. A missing to means today and a
// missing from means six days before to.
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	query := r.URL.Query()
	to := h.now().In(h.ledger.Location())
	if value := strings.TrimSpace(query.Get("to")); value != "" {
		parsed, err := h.ledger.ParseDate(value)
		if err != nil {
			h.fail(w, r, err)
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -6)
	if value := strings.TrimSpace(query.Get("from")); value != "" {
		parsed, err := h.ledger.ParseDate(value)
		if err != nil {
			h.fail(w, r, err)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	return from, to, true
}

func (h *Handler) publishBoard(ctx context.Context) {
	if h.publisher == nil {
		return
	}
	board, err := h.queue.Board(ctx)
	if err != nil {
		h.logger.Warn("queue snapshot failed", zap.Error(err))
		return
	}
	h.publisher.Publish(models.TopicQueue, models.EventQueueUpdated, board)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", requestIDFromRequest(r)), zap.Error(err))
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrEmptyName):
		return http.StatusBadRequest, "invalid_request", "name is required"
	case errors.Is(err, completion.ErrInvalidPrice):
		return http.StatusBadRequest, "invalid_price", "service_price must be a non-negative number"
	case errors.Is(err, ledger.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD"
	case errors.Is(err, ledger.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range", "from must not be after to"
	case errors.Is(err, ledger.ErrRangeTooLarge):
		return http.StatusBadRequest, "range_too_large", "date range is limited to 366 days"
	case errors.Is(err, completion.ErrTicketNotPending):
		return http.StatusConflict, "ticket_not_pending", "ticket is not pending"
	case errors.Is(err, session.ErrInvalidPIN):
		return http.StatusUnauthorized, "invalid_pin", "invalid pin"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound, "not_found", "document not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
