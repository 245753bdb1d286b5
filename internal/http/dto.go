package http

import (
	"time"

	"fintrack/internal/core"
	"fintrack/internal/market"
	"fintrack/internal/receipt"
	"fintrack/internal/services"
)

// Money goes over the wire both as a decimal string and as integer cents.
type moneyJSON struct {
	Value string `json:"value"`
	Cents int64  `json:"cents"`
}

func toMoney(m core.Money) moneyJSON {
	return moneyJSON{Value: m.String(), Cents: m.Cents}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Icon       string `json:"icon"`
	Predefined bool   `json:"predefined"`
}

func toCategory(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Color: c.ColorHex(), Icon: c.Icon, Predefined: c.Predefined}
}

type transactionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	CategoryID  int64  `json:"category_id"`
	Date        string `json:"date"`
	// Defaults to true; income must be explicit.
	IsExpense *bool `json:"is_expense"`
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Amount      moneyJSON `json:"amount"`
	CategoryID  int64     `json:"category_id"`
	Date        time.Time `json:"date"`
	IsExpense   bool      `json:"is_expense"`
}

func toTransaction(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Amount:      toMoney(t.Amount),
		CategoryID:  t.CategoryID,
		Date:        t.Date,
		IsExpense:   t.IsExpense,
	}
}

func toTransactions(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransaction(t))
	}
	return out
}

type budgetRequest struct {
	CategoryID int64  `json:"category_id"`
	Amount     Amount `json:"amount"`
	Period     string `json:"period"`
}

type budgetResponse struct {
	ID         int64       `json:"id"`
	CategoryID int64       `json:"category_id"`
	Amount     moneyJSON   `json:"amount"`
	Period     core.Period `json:"period"`
}

func toBudget(b core.Budget) budgetResponse {
	return budgetResponse{ID: b.ID, CategoryID: b.CategoryID, Amount: toMoney(b.Amount), Period: b.Period}
}

type budgetProgressResponse struct {
	Budget      budgetResponse `json:"budget"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Spent       moneyJSON      `json:"spent"`
	Remaining   moneyJSON      `json:"remaining"`
	Fraction    float64        `json:"fraction"`
}

func toBudgetProgress(ps []core.BudgetProgress) []budgetProgressResponse {
	out := make([]budgetProgressResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, budgetProgressResponse{
			Budget:      toBudget(p.Budget),
			PeriodStart: p.Window.Start,
			PeriodEnd:   p.Window.End,
			Spent:       toMoney(p.Spent),
			Remaining:   toMoney(p.Remaining),
			Fraction:    p.Fraction,
		})
	}
	return out
}

type summaryResponse struct {
	Income   moneyJSON `json:"income"`
	Expenses moneyJSON `json:"expenses"`
	Balance  moneyJSON `json:"balance"`
	Count    int       `json:"count"`
}

func toSummary(s core.Summary) summaryResponse {
	return summaryResponse{Income: toMoney(s.Income), Expenses: toMoney(s.Expenses), Balance: toMoney(s.Balance), Count: s.Count}
}

type categoryStatResponse struct {
	CategoryID int64     `json:"category_id"`
	Amount     moneyJSON `json:"amount"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
}

func toCategoryStats(cs []core.CategoryStat) []categoryStatResponse {
	out := make([]categoryStatResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryStatResponse{CategoryID: c.CategoryID, Amount: toMoney(c.Amount), Count: c.Count, Percentage: c.Percentage})
	}
	return out
}

type monthBucketResponse struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Income   moneyJSON `json:"income"`
	Expenses moneyJSON `json:"expenses"`
	Balance  moneyJSON `json:"balance"`
	Count    int       `json:"count"`
}

func toTrend(bs []core.MonthBucket) []monthBucketResponse {
	out := make([]monthBucketResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, monthBucketResponse{
			Year: b.Year, Month: b.Month,
			Income: toMoney(b.Income), Expenses: toMoney(b.Expenses), Balance: toMoney(b.Balance),
			Count: b.Count,
		})
	}
	return out
}

type averageResponse struct {
	MonthTotal   moneyJSON `json:"month_total"`
	ElapsedDays  int       `json:"elapsed_days"`
	ElapsedWeeks int       `json:"elapsed_weeks"`
	Daily        float64   `json:"daily"`
	Weekly       float64   `json:"weekly"`
}

func toAverage(a core.AverageExpense) averageResponse {
	return averageResponse{
		MonthTotal:   toMoney(a.MonthTotal),
		ElapsedDays:  a.ElapsedDays,
		ElapsedWeeks: a.ElapsedWeeks,
		Daily:        a.Daily,
		Weekly:       a.Weekly,
	}
}

type dashboardResponse struct {
	Year          int                      `json:"year"`
	Month         int                      `json:"month"`
	Summary       summaryResponse          `json:"summary"`
	Average       *averageResponse         `json:"average,omitempty"`
	TopCategories []categoryStatResponse   `json:"top_categories"`
	Budgets       []budgetProgressResponse `json:"budgets"`
	Recent        []transactionResponse    `json:"recent"`
}

func toDashboard(d services.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Year:          d.Year,
		Month:         d.Month,
		Summary:       toSummary(d.Summary),
		TopCategories: toCategoryStats(d.TopCategories),
		Budgets:       toBudgetProgress(d.Budgets),
		Recent:        toTransactions(d.Recent),
	}
	if d.Average != nil {
		avg := toAverage(*d.Average)
		resp.Average = &avg
	}
	return resp
}

type draftRequest struct {
	Title  string `json:"title"`
	Amount Amount `json:"amount"`
}

type draftResponse struct {
	Index      int       `json:"index"`
	Title      string    `json:"title"`
	Amount     moneyJSON `json:"amount"`
	CategoryID int64     `json:"category_id"`
	Date       time.Time `json:"date"`
	IsExpense  bool      `json:"is_expense"`
}

type importResponse struct {
	ID         string          `json:"id"`
	CategoryID int64           `json:"category_id"`
	Status     receipt.Status  `json:"status"`
	Error      string          `json:"error,omitempty"`
	StoreName  string          `json:"store_name,omitempty"`
	Date       *time.Time      `json:"date,omitempty"`
	Drafts     []draftResponse `json:"drafts"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toImport(s receipt.Snapshot) importResponse {
	resp := importResponse{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Status:     s.Status,
		Error:      s.Error,
		StoreName:  s.StoreName,
		Drafts:     make([]draftResponse, 0, len(s.Drafts)),
		CreatedAt:  s.CreatedAt,
	}
	if !s.Date.IsZero() {
		d := s.Date
		resp.Date = &d
	}
	for i, d := range s.Drafts {
		resp.Drafts = append(resp.Drafts, draftResponse{
			Index:      i,
			Title:      d.Title,
			Amount:     toMoney(d.Amount),
			CategoryID: d.CategoryID,
			Date:       d.Date,
			IsExpense:  d.IsExpense,
		})
	}
	return resp
}

type commitResponse struct {
	Import       importResponse        `json:"import"`
	Transactions []transactionResponse `json:"transactions"`
}

type historyResponse struct {
	AssetID  int64               `json:"asset_id"`
	Interval string              `json:"interval"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Points   []market.PricePoint `json:"points"`
}
