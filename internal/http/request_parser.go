package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

type createEntryRequest struct {
	Date        string          `json:"date" binding:"required,isodate"`
	Category    string          `json:"category" binding:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=200"`
}

type createTemplateRequest struct {
	Category    string          `json:"category" binding:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=200"`
	Interval    string          `json:"interval" binding:"required,oneof=monthly weekly"`
}

type budgetRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type todayQuery struct {
	Today       string `form:"today" binding:"omitempty,isodate"`
	Materialize bool   `form:"materialize"`
}

// registerValidators adds the custom tags used by the request types to gin's
// validator.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
}

// parseToday resolves the reference day: the explicit ?today= value when
// present, otherwise the current date in loc.
func parseToday(q todayQuery, loc *time.Location, now func() time.Time) (time.Time, error) {
	if q.Today != "" {
		return core.ParseDate(q.Today)
	}
	t := now().In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

func ownerParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("owner"))
}

func (r createEntryRequest) toEntry(owner string) core.LedgerEntry {
	return core.LedgerEntry{
		Date:        r.Date,
		Category:    strings.TrimSpace(r.Category),
		Amount:      core.NewAmount(r.Amount),
		Description: strings.TrimSpace(r.Description),
		Owner:       owner,
	}
}

func (r createTemplateRequest) toTemplate(owner string) core.RecurringTemplate {
	return core.RecurringTemplate{
		Category:    strings.TrimSpace(r.Category),
		Amount:      r.Amount.Round(2),
		Description: strings.TrimSpace(r.Description),
		Interval:    core.Interval(r.Interval),
		Owner:       owner,
	}
}
