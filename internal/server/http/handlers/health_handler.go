package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dukasync/storesync/internal/server/http/dto"
)

// HealthHandler reports store connectivity.
type HealthHandler struct {
	facade HealthFacade
}

// NewHealthHandler creates HealthHandler instance.
func NewHealthHandler(facade HealthFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Health handles GET /api/health. The endpoint answers 200 as long as the
// service itself runs; degraded stores are reported in the payload.
func (h *HealthHandler) Health(c *gin.Context) {
	remoteOK, tiers := h.facade.Health(c.Request.Context())

	resp := dto.HealthResponse{Remote: remoteOK}
	for _, tier := range tiers {
		resp.Tiers = append(resp.Tiers, dto.TierStatus{Tier: string(tier.Tier), OK: tier.OK})
	}
	c.JSON(http.StatusOK, resp)
}
