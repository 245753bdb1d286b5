package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	defaultTransactionLimit = 200
	maxTransactionLimit     = 1000
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategory(c))
	}
	NewJSONResponse().Data(out).Write(w)
}

func (req categoryRequest) category() (core.Category, error) {
	color, err := core.ParseColor(req.Color)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:  sanitizeInput(req.Name),
		Color: color,
		Icon:  sanitizeInput(req.Icon),
	}, nil
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	c, err := req.category()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.svc.Categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/categories/%d", created.ID)).
		Data(toCategory(created)).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c, err := req.category()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c.ID = id
	updated, err := s.svc.Categories.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toCategory(updated)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	moved, err := s.svc.Categories.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Data(map[string]int64{"reassigned_transactions": moved}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := ParseWindow(q, s.now().Location())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	limit, err := ParseLimit(q, defaultTransactionLimit, maxTransactionLimit)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	f := storage.TransactionFilter{Window: window, Limit: limit}

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, log.OpList, fmt.Errorf("%w: invalid category %q", core.ErrValidation, v))
			return
		}
		f.CategoryID = id
	}
	switch kind := strings.TrimSpace(q.Get("kind")); kind {
	case "", storage.KindExpense, storage.KindIncome:
		f.Kind = kind
	default:
		writeError(w, r, log.OpList, fmt.Errorf("%w: invalid kind %q", core.ErrValidation, kind))
		return
	}

	txs, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(toTransactions(txs)).Write(w)
}

// transaction converts the request, defaulting the date to now and the kind to expense.
func (s *Server) transaction(req transactionRequest) (core.Transaction, error) {
	t := core.Transaction{
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money(req.Amount),
		CategoryID:  req.CategoryID,
		Date:        s.now(),
		IsExpense:   true,
	}
	if req.Date != "" {
		d, err := ParseDateTime(req.Date, s.now().Location())
		if err != nil {
			return core.Transaction{}, err
		}
		t.Date = d
	}
	if req.IsExpense != nil {
		t.IsExpense = *req.IsExpense
	}
	return t, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.transaction(req)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.svc.Transactions.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionCreated(r.Context(), created.ID, created.Amount.Cents, created.CategoryID, created.IsExpense)
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/transactions/%d", created.ID)).
		Data(toTransaction(created)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toTransaction(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	t, err := s.transaction(req)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	t.ID = id
	updated, err := s.svc.Transactions.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toTransaction(updated)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (req budgetRequest) budget() (core.Budget, error) {
	period, err := core.ParsePeriod(req.Period)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{CategoryID: req.CategoryID, Amount: core.Money(req.Amount), Period: period}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudget(b))
	}
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	b, err := req.budget()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/budgets/%d", created.ID)).
		Data(toBudget(created)).
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := req.budget()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	b.ID = id
	updated, err := s.svc.Budgets.Update(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(toBudget(updated)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.Budgets.Progress(r.Context(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(toBudgetProgress(progress)).Write(w)
}
