// README: Dispute filing and admin review handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/dispute"
	"helperhub/internal/types"
)

type DisputeHandler struct {
	disputes *dispute.Service
}

func NewDisputeHandler(svc *dispute.Service) *DisputeHandler {
	return &DisputeHandler{disputes: svc}
}

type fileDisputeReq struct {
	DisputeType    string `json:"disputeType"`
	Description    string `json:"description"`
	RequestedCount *int   `json:"requestedCount"`
	SettlementID   string `json:"settlementId"`
}

func (h *DisputeHandler) File(c *gin.Context) {
	var req fileDisputeReq
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.disputes.File(c.Request.Context(), dispute.FileCommand{
		OrderID:        pathID(c),
		FiledBy:        callerID(c),
		Role:           callerActor(c),
		DisputeType:    req.DisputeType,
		Description:    req.Description,
		RequestedCount: req.RequestedCount,
		SettlementID:   types.ID(req.SettlementID).Ptr(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

type updateDisputeReq struct {
	Status          string `json:"status"`
	Resolution      string `json:"resolution"`
	AdminReply      string `json:"adminReply"`
	AcceptedCount   *int   `json:"acceptedCount"`
	DeductionAmount *int64 `json:"deductionAmount"`
}

func (h *DisputeHandler) UpdateStatus(c *gin.Context) {
	var req updateDisputeReq
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.disputes.UpdateStatus(c.Request.Context(), dispute.UpdateCommand{
		DisputeID:       pathID(c),
		Status:          dispute.Status(req.Status),
		AdminID:         callerID(c),
		Resolution:      req.Resolution,
		AdminReply:      req.AdminReply,
		AcceptedCount:   req.AcceptedCount,
		DeductionAmount: req.DeductionAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}
