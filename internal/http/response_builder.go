package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/middleware/trace"
	"tracker/internal/ports"
	"tracker/internal/services"
)

type entryResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

type templateResponse struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Interval    string `json:"interval"`
	Owner       string `json:"owner"`
}

type templateFailureResponse struct {
	TemplateID int64  `json:"template_id"`
	Error      string `json:"error"`
}

type materializeResponse struct {
	Inserted int                       `json:"inserted"`
	Skipped  int                       `json:"skipped"`
	Entries  []entryResponse           `json:"entries"`
	Failures []templateFailureResponse `json:"failures"`
}

type categoryAmountResponse struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type budgetResponse struct {
	Budget    *string `json:"budget"`
	Spent     string  `json:"spent"`
	Remaining *string `json:"remaining"`
	Percent   int     `json:"percent"`
	Tier      string  `json:"tier"`
}

type dashboardResponse struct {
	Owner          string                   `json:"owner"`
	Today          string                   `json:"today"`
	MonthTotal     string                   `json:"month_total"`
	YearTotal      string                   `json:"year_total"`
	Categories     []categoryAmountResponse `json:"categories"`
	MonthlyTotals  []string                 `json:"monthly_totals"`
	SkippedEntries int                      `json:"skipped_entries"`
	Budget         budgetResponse           `json:"budget"`
	Materialized   *materializeResponse     `json:"materialized,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

func toEntryResponse(e core.LedgerEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Date:        e.Date,
		Category:    e.Category,
		Amount:      string(e.Amount),
		Description: e.Description,
		Owner:       e.Owner,
	}
}

func toEntryResponses(entries []core.LedgerEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toTemplateResponse(t core.RecurringTemplate) templateResponse {
	return templateResponse{
		ID:          t.ID,
		Category:    t.Category,
		Amount:      money(t.Amount),
		Description: t.Description,
		Interval:    string(t.Interval),
		Owner:       t.Owner,
	}
}

func toMaterializeResponse(r services.MaterializeResult) materializeResponse {
	resp := materializeResponse{
		Inserted: r.Inserted,
		Skipped:  r.Skipped,
		Entries:  toEntryResponses(r.Entries),
		Failures: make([]templateFailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, templateFailureResponse{TemplateID: f.Template.ID, Error: f.Err.Error()})
	}
	return resp
}

func toDashboardResponse(d services.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		Owner:          d.Owner,
		Today:          d.Today,
		MonthTotal:     money(d.Summary.MonthTotal),
		YearTotal:      money(d.Summary.YearTotal),
		Categories:     make([]categoryAmountResponse, 0, len(d.Summary.ByCategory)),
		MonthlyTotals:  make([]string, 0, len(d.Summary.MonthlyTotals)),
		SkippedEntries: d.Summary.Skipped,
		Budget: budgetResponse{
			Budget:    nullMoney(d.Budget.Budget),
			Spent:     money(d.Budget.Spent),
			Remaining: nullMoney(d.Budget.Remaining),
			Percent:   d.Budget.Percent,
			Tier:      string(d.Budget.Tier),
		},
	}
	for _, c := range d.Summary.ByCategory {
		resp.Categories = append(resp.Categories, categoryAmountResponse{Name: c.Name, Amount: money(c.Amount)})
	}
	for _, m := range d.Summary.MonthlyTotals {
		resp.MonthlyTotals = append(resp.MonthlyTotals, money(m))
	}
	if d.Materialized != nil {
		m := toMaterializeResponse(*d.Materialized)
		resp.Materialized = &m
	}
	return resp
}

var badRequestErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidInterval,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrEmptyOwner,
	core.ErrDescriptionTooLong,
}

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, validationMessage(verrs)
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ports.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "isodate" {
			msgs = append(msgs, core.ErrInvalidDate.Error())
			continue
		}
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

// writeError logs and renders err. Server-side failures are logged at error
// level, client errors at warn.
func writeError(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	logger := applog.FromContext(c.Request.Context())
	fields := applog.NewFields().
		WithOperation(op).
		WithOwner(c.Param("owner")).
		WithError(err).
		ToSlice()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "Request failed", fields...)
	} else {
		logger.WarnContext(c.Request.Context(), "Request rejected", fields...)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg, "request_id": trace.RequestID(c)})
}

// badRequest renders a bind failure. JSON syntax errors carry no useful
// detail for clients beyond the message.
func badRequest(c *gin.Context, op string, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(c, op, err)
		return
	}
	applog.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Invalid request body",
		applog.FieldOperation, op,
		applog.FieldError, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "request_id": trace.RequestID(c)})
}
