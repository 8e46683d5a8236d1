package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dukasync/storesync/internal/server/http/dto"
)

// CatalogHandler serves the storefront product listing.
type CatalogHandler struct {
	facade CatalogFacade
}

// NewCatalogHandler creates CatalogHandler instance.
func NewCatalogHandler(facade CatalogFacade) *CatalogHandler {
	return &CatalogHandler{facade: facade}
}

// List handles GET /api/products.
func (h *CatalogHandler) List(c *gin.Context) {
	products := h.facade.Products(c.Request.Context())

	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, dto.ProductFromModel(p))
	}
	c.JSON(http.StatusOK, out)
}
