package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upande/sprayplan/services/api/plan"
)

type gridRequest struct {
	ObservationsByType map[string][]string `json:"observations_by_type"`
	Stages             *[]string           `json:"stages"`
	Sections           *[]string           `json:"sections"`
	Requirements       *[]string           `json:"requirements"`
	Variety            string              `json:"variety"`
}

// handleV1Grid classifies every grid cell against the submitted filters.
// Omitted filter dimensions fall back to the session's default-checked
// state.
// POST /api/v1/session/:id/grid
func (s *Server) handleV1Grid(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var req gridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter body"})
		return
	}

	filters := sess.DefaultFilters(req.Variety)
	if req.ObservationsByType != nil {
		filters.ObservationsByType = req.ObservationsByType
	}
	if req.Stages != nil {
		filters.Stages = *req.Stages
	}
	if req.Sections != nil {
		filters.Sections = *req.Sections
	}
	if req.Requirements != nil {
		filters.Requirements = *req.Requirements
	}

	cells := sess.Grid(filters)

	alerts := map[string]int{}
	for _, cell := range cells {
		if cell.Alert != plan.AlertNone {
			alerts[cell.Alert]++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": cells,
		"meta": gin.H{
			"count":                len(cells),
			"alerts":               alerts,
			"thresholds_available": sess.ThresholdsAvailable(req.Variety),
		},
	})
}

type areaRequest struct {
	Scope     string   `json:"scope"`
	Varieties []string `json:"varieties"`
	BedSpec   string   `json:"bed_spec"`
}

// handleV1Area derives spray area and water volume for a scope selection.
// POST /api/v1/session/:id/area
func (s *Server) handleV1Area(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var req areaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid area body"})
		return
	}

	switch req.Scope {
	case plan.ScopeFullGreenhouse, plan.ScopeVariety, plan.ScopeBeds:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scope"})
		return
	}

	result := sess.Area(req.Scope, req.Varieties, req.BedSpec)

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}
