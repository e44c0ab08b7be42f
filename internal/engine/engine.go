// Package engine is the boundary between the ledger core and its presentation
// layers. It binds sessions to the store, the model assistant and per-user
// intake pipelines, and reports every outcome as a status-tagged Response.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/google/uuid"
)

// DefaultBudgets is the budget set shown to users who have not created any.
// Each user sees them under IDs of their own (see defaultBudgetID).
var DefaultBudgets = []model.Budget{
	{Category: model.CategoryFood, Limit: 500, Period: model.BudgetPeriodMonthly},
	{Category: model.CategoryTransport, Limit: 200, Period: model.BudgetPeriodMonthly},
	{Category: model.CategoryEntertainment, Limit: 150, Period: model.BudgetPeriodMonthly},
}

func defaultBudgetID(userID string, category model.Category) string {
	return fmt.Sprintf("default-%s-%s", userID, strings.ToLower(string(category)))
}

// Engine serves ledger operations for any number of sessions.
type Engine struct {
	storage   service.Storage
	assistant Assistant
	logger    *slog.Logger
	clock     func() time.Time
	pipelines map[string]*intake.Pipeline
	intakeOpt []intake.Option
	intakeCfg intake.Config
	mu        sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for sessions.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithIntakeConfig sets debounce behavior for intake pipelines.
func WithIntakeConfig(cfg intake.Config) Option {
	return func(e *Engine) {
		e.intakeCfg = cfg
	}
}

// WithIntakeOptions adds options to every intake pipeline the engine creates.
func WithIntakeOptions(opts ...intake.Option) Option {
	return func(e *Engine) {
		e.intakeOpt = append(e.intakeOpt, opts...)
	}
}

// New creates an engine over storage and assistant.
func New(storage service.Storage, assistant Assistant, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		storage:   storage,
		assistant: assistant,
		logger:    logger,
		clock:     time.Now,
		pipelines: make(map[string]*intake.Pipeline),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bootstrap makes sure the guest profile exists.
func (e *Engine) Bootstrap(ctx context.Context) Response[model.User] {
	user, err := e.storage.EnsureUser(ctx, model.GuestUser(e.clock()))
	if err != nil {
		return fail[model.User](fmt.Errorf("failed to bootstrap guest user: %w", err))
	}
	return ok(user)
}

// Session resolves userID to a session, creating the profile on first use.
// An empty userID means the guest.
func (e *Engine) Session(ctx context.Context, userID string) (service.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == model.GuestUserID {
		resp := e.Bootstrap(ctx)
		if !resp.OK() {
			return service.Session{}, resp.Err
		}
		return e.sessionFor(resp.Data), nil
	}

	fresh := model.GuestUser(e.clock())
	fresh.ID = userID
	fresh.Name = userID
	user, err := e.storage.EnsureUser(ctx, fresh)
	if err != nil {
		return service.Session{}, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	return e.sessionFor(user), nil
}

func (e *Engine) sessionFor(user model.User) service.Session {
	session := service.NewSession(user)
	session.Clock = e.clock
	return session
}

// Me returns the session's profile.
func (e *Engine) Me(ctx context.Context, session service.Session) Response[model.User] {
	user, err := e.storage.GetUser(ctx, session.UserID)
	if err != nil {
		return fail[model.User](err)
	}
	return ok(user)
}

// Transactions lists the session's transactions, most recent first.
func (e *Engine) Transactions(ctx context.Context, session service.Session, filter service.TransactionFilter) Response[[]model.Transaction] {
	txns, err := e.storage.GetTransactions(ctx, session.UserID, filter)
	if err != nil {
		return fail[[]model.Transaction](err)
	}
	return ok(txns)
}

// AddTransaction records a manually entered transaction.
func (e *Engine) AddTransaction(ctx context.Context, session service.Session, txn model.Transaction) Response[model.Transaction] {
	txn.UserID = session.UserID
	if txn.Currency == "" {
		txn.Currency = session.Currency
	}
	if txn.Date.IsZero() {
		txn.Date = session.Today()
	}
	if txn.Category == "" {
		txn.Category = model.CategoryUncategorized
	}
	if txn.Provenance == nil {
		txn.Provenance = &model.Provenance{Source: model.SourceManual}
	}

	stored, err := e.storage.CreateTransaction(ctx, txn)
	if err != nil {
		return fail[model.Transaction](err)
	}
	return created(stored)
}

// DeleteTransaction removes one of the session's transactions. Unknown IDs succeed.
func (e *Engine) DeleteTransaction(ctx context.Context, session service.Session, id string) Response[string] {
	if err := e.storage.DeleteTransaction(ctx, id, session.UserID); err != nil {
		return fail[string](err)
	}
	return ok(id)
}

// Budgets returns the session's budgets with live spending. Users without
// budgets get DefaultBudgets.
func (e *Engine) Budgets(ctx context.Context, session service.Session) Response[[]model.Budget] {
	budgets, err := e.storage.GetBudgets(ctx, session.UserID)
	if err != nil {
		return fail[[]model.Budget](err)
	}
	if len(budgets) > 0 {
		return ok(budgets)
	}

	txns, err := e.storage.GetTransactions(ctx, session.UserID, service.TransactionFilter{})
	if err != nil {
		return fail[[]model.Budget](err)
	}
	spent := make(map[model.Category]float64)
	for _, txn := range txns {
		spent[txn.Category] += txn.Amount
	}

	defaults := make([]model.Budget, len(DefaultBudgets))
	for i, b := range DefaultBudgets {
		b.ID = defaultBudgetID(session.UserID, b.Category)
		b.UserID = session.UserID
		b.Spent = spent[b.Category]
		defaults[i] = b
	}
	return ok(defaults)
}

// SetBudget creates or replaces one of the session's budgets. A budget whose ID
// the user does not own replaces the user's budget for the same category and
// period, if any. IDs owned by other users are rejected by the store.
func (e *Engine) SetBudget(ctx context.Context, session service.Session, budget model.Budget) Response[model.Budget] {
	budget.UserID = session.UserID
	if budget.Period == "" {
		budget.Period = model.BudgetPeriodMonthly
	}

	existing, err := e.storage.GetBudgets(ctx, session.UserID)
	if err != nil {
		return fail[model.Budget](err)
	}

	isNew := true
	for _, b := range existing {
		if b.ID == budget.ID {
			isNew = false
			break
		}
	}
	if isNew {
		for _, b := range existing {
			if b.Category == budget.Category && b.Period == budget.Period {
				budget.ID = b.ID
				isNew = false
				break
			}
		}
	}
	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}

	if err := e.storage.UpsertBudget(ctx, budget); err != nil {
		return fail[model.Budget](err)
	}

	budgets, err := e.storage.GetBudgets(ctx, session.UserID)
	if err != nil {
		return fail[model.Budget](err)
	}
	for _, b := range budgets {
		if b.ID == budget.ID {
			budget = b
		}
	}

	if isNew {
		return created(budget)
	}
	return ok(budget)
}

// Analytics projects the session's transactions matching filter.
func (e *Engine) Analytics(ctx context.Context, session service.Session, filter service.TransactionFilter) Response[analytics.Summary] {
	txns, err := e.storage.GetTransactions(ctx, session.UserID, filter)
	if err != nil {
		return fail[analytics.Summary](err)
	}
	return ok(analytics.Project(txns))
}

// Ask answers a question about the session's spending. Model failures yield
// the fallback answer, never an error.
func (e *Engine) Ask(ctx context.Context, session service.Session, query string) Response[string] {
	if strings.TrimSpace(query) == "" {
		return fail[string](common.NewValidationError("query", "is required"))
	}

	history, err := e.storage.GetTransactions(ctx, session.UserID, service.TransactionFilter{})
	if err != nil {
		return fail[string](err)
	}
	return ok(e.assistant.Ask(ctx, history, query))
}

// Pipeline returns the session's intake pipeline, creating it on first use.
func (e *Engine) Pipeline(session service.Session) *intake.Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, exists := e.pipelines[session.UserID]
	if !exists {
		opts := append([]intake.Option{intake.WithModel(e.assistant.Model())}, e.intakeOpt...)
		p = intake.NewPipeline(session, e.assistant, e.storage, e.intakeCfg, e.logger, opts...)
		e.pipelines[session.UserID] = p
	}
	return p
}

// IntakeState returns a surface snapshot.
func (e *Engine) IntakeState(session service.Session, surface string) Response[intake.Snapshot] {
	return ok(e.Pipeline(session).Surface(surface).Snapshot())
}

// IntakeText feeds text into a surface.
func (e *Engine) IntakeText(session service.Session, surface, text string) Response[intake.Snapshot] {
	s := e.Pipeline(session).Surface(surface)
	if err := s.SetText(text); err != nil {
		return fail[intake.Snapshot](err)
	}
	return ok(s.Snapshot())
}

// IntakeImage stages a receipt image on a surface and starts extraction.
func (e *Engine) IntakeImage(session service.Session, surface string, data []byte, mimeType string) Response[intake.Snapshot] {
	s := e.Pipeline(session).Surface(surface)
	if err := s.SelectImage(data, mimeType); err != nil {
		return fail[intake.Snapshot](err)
	}
	return ok(s.Snapshot())
}

// IntakeConfirm commits a surface's pending preview.
func (e *Engine) IntakeConfirm(ctx context.Context, session service.Session, surface string, overrides intake.Overrides) Response[model.Transaction] {
	txn, err := e.Pipeline(session).Surface(surface).Confirm(ctx, overrides)
	if err != nil {
		return fail[model.Transaction](err)
	}
	return created(txn)
}

// CancelResult reports whether a cancel discarded anything.
type CancelResult struct {
	Snapshot  intake.Snapshot `json:"snapshot"`
	Cancelled bool            `json:"cancelled"`
}

// IntakeCancel discards a surface's pending preview. Cancelling an idle
// surface is a successful no-op.
func (e *Engine) IntakeCancel(session service.Session, surface string) Response[CancelResult] {
	s := e.Pipeline(session).Surface(surface)
	cancelled := s.Cancel()
	return ok(CancelResult{Cancelled: cancelled, Snapshot: s.Snapshot()})
}

// Close stops every intake pipeline.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, p := range e.pipelines {
		p.Close()
		delete(e.pipelines, id)
	}
}
