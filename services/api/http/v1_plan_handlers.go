package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upande/sprayplan/services/api/erp"
	"github.com/upande/sprayplan/services/api/plan"
	"github.com/upande/sprayplan/services/api/session"
)

type stockRequest struct {
	PlanRows  []plan.ChemicalRow `json:"plan_rows"`
	ModalRows []plan.ChemicalRow `json:"modal_rows"`
	// Debounce marks a keystroke-driven edit: the refresh is coalesced on
	// the trailing edge of the configured window instead of running now.
	Debounce bool `json:"debounce"`
}

// handleV1Stock reconciles the two chemical row lists, queries stock
// balances for the deduplicated name set, and annotates availability plus
// the cached source warehouse choices.
// POST /api/v1/session/:id/stock
func (s *Server) handleV1Stock(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stock body"})
		return
	}

	rows := plan.CollectFinal(req.PlanRows, req.ModalRows)
	names := plan.UniqueNames(rows)
	if len(names) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"data": []plan.StockSummary{},
			"meta": gin.H{"message": "no chemicals to check"},
		})
		return
	}

	if req.Debounce {
		sess.DebounceStockRefresh(func() {
			s.refreshStock(sess, names)
		})
		c.JSON(http.StatusAccepted, gin.H{
			"data": sess.StockSnapshot(),
			"meta": gin.H{"pending": true},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.erp.StockBalances(ctx, names)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	summaries := plan.SummarizeStock(result.StockBalances, s.sessions.SourceWarehouse)
	sess.SetStockSnapshot(session.StockSnapshot{Summaries: summaries, UpdatedAt: time.Now().UTC()})

	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
		"meta": gin.H{"count": len(summaries)},
	})
}

// refreshStock runs a background stock refresh on behalf of a debounced
// edit. The latest response wins.
func (s *Server) refreshStock(sess *session.Session, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := s.erp.StockBalances(ctx, names)
	if err != nil {
		sess.SetStockSnapshot(session.StockSnapshot{UpdatedAt: time.Now().UTC(), Error: err.Error()})
		return
	}
	sess.SetStockSnapshot(session.StockSnapshot{
		Summaries: plan.SummarizeStock(result.StockBalances, s.sessions.SourceWarehouse),
		UpdatedAt: time.Now().UTC(),
	})
}

type stockSourceRequest struct {
	Chemical  string `json:"chemical"`
	Warehouse string `json:"warehouse"`
}

// handleV1StockSource records the chosen source warehouse for a chemical.
// The choice persists across sessions until changed.
// PUT /api/v1/session/:id/stock/source
func (s *Server) handleV1StockSource(c *gin.Context) {
	if _, ok := s.sessionFromPath(c); !ok {
		return
	}

	var req stockSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Chemical == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chemical is required"})
		return
	}

	s.sessions.SetSourceWarehouse(req.Chemical, req.Warehouse)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"chemical": req.Chemical, "warehouse": req.Warehouse},
	})
}

// handleV1BOMDetail expands a BOM header into its chemical rows.
// GET /api/v1/session/:id/bom/:name
func (s *Server) handleV1BOMDetail(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	name := c.Param("name")
	header, rows, found := sess.BOMDetail(name)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "bom not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"name":           header.Name,
			"water_ph":       header.WaterPH,
			"water_hardness": header.WaterHardness,
			"chemicals":      rows,
		},
	})
}

type createBOMRequest struct {
	Name          string             `json:"name"`
	WaterPH       float64            `json:"water_ph"`
	WaterHardness float64            `json:"water_hardness"`
	Chemicals     []plan.ChemicalRow `json:"chemicals"`
}

// handleV1CreateBOM validates and forwards a BOM creation request.
// POST /api/v1/session/:id/bom
func (s *Server) handleV1CreateBOM(c *gin.Context) {
	if _, ok := s.sessionFromPath(c); !ok {
		return
	}

	var req createBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bom body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bom name is required"})
		return
	}
	if req.WaterPH <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid water pH is required"})
		return
	}
	if req.WaterHardness <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid water hardness is required"})
		return
	}

	items := make([]erp.BOMChemical, 0, len(req.Chemicals))
	for _, row := range plan.CollectFinal(req.Chemicals, nil) {
		items = append(items, erp.BOMChemical{
			ItemName:        row.Name,
			ApplicationRate: row.Rate,
			UOM:             row.UOM,
		})
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one chemical with a valid rate is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.erp.CreateBOM(ctx, erp.BOMRequest{
		Item:          req.Name,
		WaterPH:       req.WaterPH,
		WaterHardness: req.WaterHardness,
		Items:         items,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if result.Status != "success" {
		message := result.Message
		if message == "" {
			message = "bom creation failed"
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{"status": result.Status, "bom_name": result.BOMName},
	})
}

type workOrderRequest struct {
	plan.WorkOrderForm
	PlanRows         []plan.ChemicalRow `json:"plan_rows"`
	ModalRows        []plan.ChemicalRow `json:"modal_rows"`
	BypassGuidelines bool               `json:"bypass_guidelines"`
}

// handleV1SubmitWorkOrder runs the submission path: local completeness
// validation, remote guideline check, then work order creation. A blocked
// submission returns the guideline errors; resubmitting with
// bypass_guidelines skips the check and tags the outcome.
// POST /api/v1/session/:id/workorder
func (s *Server) handleV1SubmitWorkOrder(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}

	var req workOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work order body"})
		return
	}

	form := req.WorkOrderForm
	form.Greenhouse = sess.Greenhouse
	if len(form.Chemicals) == 0 {
		form.Chemicals = plan.CollectFinal(req.PlanRows, req.ModalRows)
	}
	for i := range form.Chemicals {
		if form.Chemicals[i].SourceWarehouse == "" {
			form.Chemicals[i].SourceWarehouse = s.sessions.SourceWarehouse(form.Chemicals[i].Name)
		}
	}

	if err := form.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	assembler := plan.NewAssembler(s.erp, s.erp)
	result := assembler.Submit(ctx, &form, req.BypassGuidelines)

	status := http.StatusOK
	switch result.State {
	case plan.StateSucceeded:
		status = http.StatusCreated
	case plan.StateBlocked:
		status = http.StatusUnprocessableEntity
	case plan.StateFailed:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"data": result})
}
