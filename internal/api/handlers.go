package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// UserHeader selects the acting user; requests without it act as the guest.
const UserHeader = "X-User-ID"

// maxImageBytes bounds receipt uploads.
const maxImageBytes = 10 << 20

// Handler serves the ledger API over an engine.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(e *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: e, logger: logger}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
	session, err := h.engine.Session(r.Context(), r.Header.Get(UserHeader))
	if err != nil {
		h.logger.Error("Failed to resolve session", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to resolve user")
		return service.Session{}, false
	}
	return session, true
}

func writeResponse[T any](w http.ResponseWriter, resp engine.Response[T]) {
	WriteJSON(w, resp.Status, resp)
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseFilter(r *http.Request) (service.TransactionFilter, error) {
	var filter service.TransactionFilter
	q := r.URL.Query()

	if name := q.Get("category"); name != "" {
		c, ok := model.ParseCategory(name)
		if !ok {
			return filter, fmt.Errorf("unknown category %q", name)
		}
		filter.Category = &c
	}
	if since := q.Get("since"); since != "" {
		d, err := model.ParseDate(since)
		if err != nil {
			return filter, err
		}
		filter.Since = &d
	}
	return filter, nil
}

// Me handles GET /api/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeResponse(w, h.engine.Me(r.Context(), session))
}

// ListTransactions handles GET /api/transactions?category=&since=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResponse(w, h.engine.Transactions(r.Context(), session, filter))
}

type transactionRequest struct {
	Merchant    string   `json:"merchant"`
	Description string   `json:"description"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Amount      float64  `json:"amount"`
	IsRecurring bool     `json:"isRecurring"`
}

// CreateTransaction handles POST /api/transactions.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txn := model.Transaction{
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Merchant:    req.Merchant,
		Description: req.Description,
		Tags:        req.Tags,
		IsRecurring: req.IsRecurring,
		Category:    model.Category(req.Category),
	}
	if c, ok := model.ParseCategory(req.Category); ok {
		txn.Category = c
	}
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		txn.Date = d
	}

	writeResponse(w, h.engine.AddTransaction(r.Context(), session, txn))
}

// DeleteTransaction handles DELETE /api/transactions/{id}.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeResponse(w, h.engine.DeleteTransaction(r.Context(), session, r.PathValue("id")))
}

// ListBudgets handles GET /api/budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeResponse(w, h.engine.Budgets(r.Context(), session))
}

type budgetRequest struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Period   string  `json:"period"`
	Limit    float64 `json:"limit"`
}

// PutBudget handles PUT /api/budgets.
func (h *Handler) PutBudget(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	budget := model.Budget{
		ID:       req.ID,
		Category: model.Category(req.Category),
		Period:   model.BudgetPeriod(strings.ToLower(req.Period)),
		Limit:    req.Limit,
	}
	if c, ok := model.ParseCategory(req.Category); ok {
		budget.Category = c
	}

	writeResponse(w, h.engine.SetBudget(r.Context(), session, budget))
}

// Analytics handles GET /api/analytics?category=&since=.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResponse(w, h.engine.Analytics(r.Context(), session, filter))
}

// Ask handles POST /api/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeResponse(w, h.engine.Ask(r.Context(), session, req.Query))
}

// IntakeState handles GET /api/intake/{surface}.
func (h *Handler) IntakeState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeResponse(w, h.engine.IntakeState(session, r.PathValue("surface")))
}

// IntakeText handles POST /api/intake/{surface}/text.
func (h *Handler) IntakeText(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeResponse(w, h.engine.IntakeText(session, r.PathValue("surface"), req.Text))
}

// IntakeImage handles POST /api/intake/{surface}/image with a multipart "file".
func (h *Handler) IntakeImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	writeResponse(w, h.engine.IntakeImage(session, r.PathValue("surface"), data, mimeType))
}

// IntakeConfirm handles POST /api/intake/{surface}/confirm with optional overrides.
func (h *Handler) IntakeConfirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var overrides intake.Overrides
	if err := decodeBody(r, &overrides); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeResponse(w, h.engine.IntakeConfirm(r.Context(), session, r.PathValue("surface"), overrides))
}

// IntakeCancel handles POST /api/intake/{surface}/cancel.
func (h *Handler) IntakeCancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeResponse(w, h.engine.IntakeCancel(session, r.PathValue("surface")))
}
