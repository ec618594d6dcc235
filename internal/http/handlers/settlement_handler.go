// README: Admin deduction and settlement statement handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/settlement"
	"helperhub/internal/types"
)

type SettlementHandler struct {
	settlement *settlement.Service
}

func NewSettlementHandler(svc *settlement.Service) *SettlementHandler {
	return &SettlementHandler{settlement: svc}
}

type deductionReq struct {
	HelperID string `json:"helperId"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

func (h *SettlementHandler) CreateDeduction(c *gin.Context) {
	var req deductionReq
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.settlement.CreateDeduction(c.Request.Context(), settlement.DeductionCommand{
		HelperID:  types.ID(req.HelperID),
		Amount:    req.Amount,
		Reason:    req.Reason,
		CreatedBy: callerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

type generateReq struct {
	HelperID string `json:"helperId"`
	Period   string `json:"period"`
}

func (h *SettlementHandler) Generate(c *gin.Context) {
	var req generateReq
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.settlement.Generate(c.Request.Context(), settlement.GenerateCommand{
		HelperID: types.ID(req.HelperID),
		Period:   req.Period,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, st)
}
