package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/server/http/dto"
	"github.com/dukasync/storesync/internal/server/http/middleware"
)

// AdminHandler serves back-office authentication, catalog management and
// order views.
type AdminHandler struct {
	admin   AdminFacade
	catalog CatalogFacade
}

// NewAdminHandler creates AdminHandler instance.
func NewAdminHandler(admin AdminFacade, catalog CatalogFacade) *AdminHandler {
	return &AdminHandler{admin: admin, catalog: catalog}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	token, err := h.admin.Login(req.Login, req.Password)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	middleware.SetAuthCookie(c, token)
	c.Status(http.StatusOK)
}

// UpsertProduct handles POST /api/admin/products and PUT
// /api/admin/products/:key.
func (h *AdminHandler) UpsertProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	product, err := h.catalog.UpsertProduct(c.Request.Context(), req.ToModel())
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidProduct) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.ProductFromModel(product))
}

// DeleteProduct handles DELETE /api/admin/products/:key.
func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("key"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrNetworkUnavailable),
			errors.Is(err, domainErrors.ErrRemoteService):
			// Deletion is authoritative only with remote confirmation.
			c.Status(http.StatusBadGateway)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Orders handles GET /api/admin/orders.
func (h *AdminHandler) Orders(c *gin.Context) {
	orders, err := h.admin.Orders(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, dto.OrderFromModel(order))
	}
	c.JSON(http.StatusOK, out)
}

// Order handles GET /api/admin/orders/:id.
func (h *AdminHandler) Order(c *gin.Context) {
	order, err := h.admin.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.OrderFromModel(*order))
}

// UpdateDeliveryStatus handles PATCH /api/admin/orders/:id/delivery-status.
func (h *AdminHandler) UpdateDeliveryStatus(c *gin.Context) {
	var req dto.DeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	err := h.admin.UpdateDeliveryStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}
