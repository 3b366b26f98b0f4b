package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1Chemicals returns the normalized chemical catalog.
// GET /api/v1/catalog/chemicals
func (s *Server) handleV1Chemicals(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	catalog, err := s.erp.FetchChemicalCatalog(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"chemicals":    catalog.Chemicals,
			"item_uom_map": catalog.ItemUOMMap,
		},
		"meta": gin.H{"count": len(catalog.Chemicals)},
	})
}

// handleV1ChemicalUOM resolves one chemical's unit of measure, cached
// across sessions.
// GET /api/v1/catalog/chemicals/:name/uom
func (s *Server) handleV1ChemicalUOM(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chemical name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	uom, err := s.erp.ChemicalUOM(ctx, name)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"chemical": name, "uom": uom},
	})
}
