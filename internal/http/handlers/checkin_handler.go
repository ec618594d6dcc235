// README: Check-in handlers for QR, personal code and order-based check-in plus requester QR/code issue.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/checkin"
)

type CheckInHandler struct {
	checkin *checkin.Service
}

func NewCheckInHandler(svc *checkin.Service) *CheckInHandler {
	return &CheckInHandler{checkin: svc}
}

func (h *CheckInHandler) ByQR(c *gin.Context) {
	var req checkin.QRPayload
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.checkin.CheckInByQR(c.Request.Context(), callerID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type codeReq struct {
	Code string `json:"code"`
}

func (h *CheckInHandler) ByCode(c *gin.Context) {
	var req codeReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.checkin.CheckInByCode(c.Request.Context(), callerID(c), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *CheckInHandler) ByOrder(c *gin.Context) {
	res, err := h.checkin.CheckInByOrder(c.Request.Context(), callerID(c), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (h *CheckInHandler) IssueQRToken(c *gin.Context) {
	payload, expiresAt, err := h.checkin.IssueQRToken(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"qr": payload, "expiresAt": expiresAt})
}

func (h *CheckInHandler) RequesterCode(c *gin.Context) {
	code, err := h.checkin.RequesterCode(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"code": code})
}
