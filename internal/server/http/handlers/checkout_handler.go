package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/server/http/dto"
)

// CheckoutHandler drives the checkout session API.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler creates CheckoutHandler instance.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Start handles POST /api/checkout.
func (h *CheckoutHandler) Start(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	view, err := h.facade.StartCheckout(c.Request.Context(), req.ToItems())
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.Status(http.StatusBadRequest)
		case errors.Is(err, domainErrors.ErrOutOfStock):
			c.Status(http.StatusConflict)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.JSON(http.StatusCreated, dto.SessionFromView(view))
}

// Status handles GET /api/checkout/:id.
func (h *CheckoutHandler) Status(c *gin.Context) {
	view, err := h.facade.CheckoutStatus(c.Param("id"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.SessionFromView(view))
}

// SubmitCode handles POST /api/checkout/:id/codes.
func (h *CheckoutHandler) SubmitCode(c *gin.Context) {
	var req dto.CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.SubmitCode(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSessionNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrTooManyAttempts):
			c.Status(http.StatusTooManyRequests)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// Blocked verdicts are reported in the payload, not as transport
	// errors: the session is still alive and may accept another code.
	status := http.StatusOK
	if result.Verdict.State != "" && !result.Verdict.State.Accepted() && !result.Done {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, dto.CodeFromResult(result))
}

// Commit handles POST /api/checkout/:id/commit.
func (h *CheckoutHandler) Commit(c *gin.Context) {
	result, err := h.facade.CommitCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSessionNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, domainErrors.ErrPaymentIncomplete):
			c.Status(http.StatusPaymentRequired)
		case errors.Is(err, domainErrors.ErrDuplicateCode),
			errors.Is(err, domainErrors.ErrAmountMismatch),
			errors.Is(err, domainErrors.ErrDateInvalid):
			c.Status(http.StatusConflict)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.JSON(http.StatusOK, dto.CommitFromResult(result))
}

// Abandon handles DELETE /api/checkout/:id.
func (h *CheckoutHandler) Abandon(c *gin.Context) {
	if err := h.facade.AbandonCheckout(c.Param("id")); err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}
