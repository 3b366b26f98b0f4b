package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upande/sprayplan/services/api/session"
)

type openSessionRequest struct {
	Greenhouse string `json:"greenhouse"`
	Date       string `json:"date"`
}

// handleV1OpenSession selects a greenhouse/date, fetches the scouting feed
// and installs a fresh session, replacing the previous one wholesale.
// POST /api/v1/session
func (s *Server) handleV1OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Greenhouse == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "greenhouse is required"})
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	sess, err := s.sessions.Open(ctx, s.erp, req.Greenhouse, req.Date)
	if err != nil {
		if errors.Is(err, session.ErrSuperseded) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sessionSnapshot(sess))
}

// handleV1SessionSnapshot returns the current derived state of a session.
// GET /api/v1/session/:id
func (s *Server) handleV1SessionSnapshot(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionSnapshot(sess))
}

func sessionSnapshot(sess *session.Session) gin.H {
	boms := make([]gin.H, 0, len(sess.BOMs))
	for _, b := range sess.BOMs {
		boms = append(boms, gin.H{
			"name":           b.Name,
			"water_ph":       b.WaterPH,
			"water_hardness": b.WaterHardness,
		})
	}

	return gin.H{
		"data": gin.H{
			"id":                 sess.ID,
			"greenhouse":         sess.Greenhouse,
			"date":               sess.Date,
			"empty":              sess.Empty,
			"layout":             sess.Layout,
			"type_filters":       sess.TypeFilters,
			"stages":             sess.Stages,
			"sections":           sess.SectionOptions,
			"varieties":          sess.Varieties,
			"spray_teams":        sess.Teams,
			"boms":               boms,
			"all_chemicals":      sess.AllChemicals,
			"targets":            sess.Targets,
			"has_susceptibility": sess.HasSusceptibility,
		},
	}
}
