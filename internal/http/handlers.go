package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	applog "tracker/internal/log"
)

func (s *Server) handleListEntries(c *gin.Context) {
	entries, err := s.ledger.ListEntries(c.Request.Context(), ownerParam(c))
	if err != nil {
		writeError(c, applog.OpList, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(entries)})
}

func (s *Server) handleCreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, applog.OpCreate, err)
		return
	}

	saved, err := s.ledger.AddEntry(c.Request.Context(), req.toEntry(ownerParam(c)))
	if err != nil {
		writeError(c, applog.OpCreate, err)
		return
	}

	applog.FromContext(c.Request.Context()).InfoContext(c.Request.Context(), "Entry created",
		applog.FieldOwner, saved.Owner,
		applog.FieldEntryID, saved.ID,
		applog.FieldDate, saved.Date)
	c.JSON(http.StatusCreated, toEntryResponse(saved))
}

func (s *Server) handleDeleteEntry(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, applog.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteEntry(c.Request.Context(), ownerParam(c), id); err != nil {
		writeError(c, applog.OpDelete, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListTemplates(c *gin.Context) {
	templates, err := s.ledger.ListTemplates(c.Request.Context(), ownerParam(c))
	if err != nil {
		writeError(c, applog.OpList, err)
		return
	}
	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"templates": out})
}

func (s *Server) handleCreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, applog.OpCreate, err)
		return
	}
	var q todayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, applog.OpCreate, err)
		return
	}
	today, err := parseToday(q, s.location, s.now)
	if err != nil {
		writeError(c, applog.OpCreate, err)
		return
	}

	saved, result, err := s.ledger.CreateTemplate(c.Request.Context(), req.toTemplate(ownerParam(c)), today)
	if err != nil {
		writeError(c, applog.OpCreate, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"template":     toTemplateResponse(saved),
		"materialized": toMaterializeResponse(result),
	})
}

func (s *Server) handleDeleteTemplate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, applog.OpDelete, err)
		return
	}
	var q todayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, applog.OpDelete, err)
		return
	}
	today, err := parseToday(q, s.location, s.now)
	if err != nil {
		writeError(c, applog.OpDelete, err)
		return
	}

	if _, err := s.ledger.DeleteTemplate(c.Request.Context(), ownerParam(c), id, today); err != nil {
		writeError(c, applog.OpDelete, err)
		return
	}
	c.Status(http.StatusNoContent)
}
