package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	applog "tracker/internal/log"
)

func (s *Server) handleMaterialize(c *gin.Context) {
	var q todayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, applog.OpMaterialize, err)
		return
	}
	today, err := parseToday(q, s.location, s.now)
	if err != nil {
		writeError(c, applog.OpMaterialize, err)
		return
	}

	result, err := s.ledger.Materialize(c.Request.Context(), ownerParam(c), today)
	if err != nil {
		writeError(c, applog.OpMaterialize, err)
		return
	}
	c.JSON(http.StatusOK, toMaterializeResponse(result))
}

func (s *Server) handleDashboard(c *gin.Context) {
	var q todayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, applog.OpDashboard, err)
		return
	}
	today, err := parseToday(q, s.location, s.now)
	if err != nil {
		writeError(c, applog.OpDashboard, err)
		return
	}

	d, err := s.ledger.Dashboard(c.Request.Context(), ownerParam(c), today, q.Materialize)
	if err != nil {
		writeError(c, applog.OpDashboard, err)
		return
	}
	c.JSON(http.StatusOK, toDashboardResponse(d))
}

func (s *Server) handleSetBudget(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, applog.OpBudget, err)
		return
	}
	amount := req.Amount.Round(2)
	if err := s.ledger.SetBudget(c.Request.Context(), ownerParam(c), amount); err != nil {
		writeError(c, applog.OpBudget, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budget": money(amount)})
}

func (s *Server) handleClearBudget(c *gin.Context) {
	if err := s.ledger.ClearBudget(c.Request.Context(), ownerParam(c)); err != nil {
		writeError(c, applog.OpBudget, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.ledger.Categories()})
}

func (s *Server) handleHealth(c *gin.Context) {
	m := s.tracer.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"total_requests": m.TotalRequests,
	})
}
