package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/session, /api/v1/catalog
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Session endpoints - per greenhouse/date selection state
	sess := v1.Group("/session")
	{
		sess.POST("", s.handleV1OpenSession)
		sess.GET("/:id", s.handleV1SessionSnapshot)
		sess.POST("/:id/grid", s.handleV1Grid)
		sess.POST("/:id/area", s.handleV1Area)
		sess.POST("/:id/stock", s.handleV1Stock)
		sess.PUT("/:id/stock/source", s.handleV1StockSource)
		sess.GET("/:id/bom/:name", s.handleV1BOMDetail)
		sess.POST("/:id/bom", s.handleV1CreateBOM)
		sess.POST("/:id/workorder", s.handleV1SubmitWorkOrder)
	}

	// Catalog endpoints - chemical list and UOM lookups
	catalog := v1.Group("/catalog")
	{
		catalog.GET("/chemicals", s.handleV1Chemicals)
		catalog.GET("/chemicals/:name/uom", s.handleV1ChemicalUOM)
	}
}
