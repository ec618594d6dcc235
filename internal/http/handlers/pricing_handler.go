// README: Pricing quote and admin courier-setting handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/pricing"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

func (h *PricingHandler) Quote(c *gin.Context) {
	qty, err := strconv.Atoi(c.DefaultQuery("quantity", "0"))
	if err != nil {
		badRequest(c, "quantity must be an integer")
		return
	}
	urgent, err := strconv.ParseBool(c.DefaultQuery("isUrgent", "false"))
	if err != nil {
		badRequest(c, "isUrgent must be a boolean")
		return
	}
	q, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteRequest{
		CompanyName: c.Query("companyName"),
		Category:    c.Query("category"),
		Quantity:    qty,
		IsUrgent:    urgent,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *PricingHandler) ListSettings(c *gin.Context) {
	items, err := h.pricing.ListSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"items": items})
}

func (h *PricingHandler) GetSetting(c *gin.Context) {
	cs, err := h.pricing.GetSetting(c.Request.Context(), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cs)
}

func (h *PricingHandler) CreateSetting(c *gin.Context) {
	var in pricing.SettingInput
	if !bindJSON(c, &in) {
		return
	}
	cs, err := h.pricing.CreateSetting(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, cs)
}

func (h *PricingHandler) UpdateSetting(c *gin.Context) {
	var in pricing.SettingInput
	if !bindJSON(c, &in) {
		return
	}
	cs, err := h.pricing.UpdateSetting(c.Request.Context(), pathID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cs)
}

func (h *PricingHandler) DeleteSetting(c *gin.Context) {
	if err := h.pricing.DeleteSetting(c.Request.Context(), pathID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
