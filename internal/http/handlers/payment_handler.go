// README: Admin payment registration and the gateway webhook endpoint.
package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/payment"
)

// maxWebhookBody caps the webhook body read.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	payments  *payment.Service
	signature *payment.SignatureVerifier
	logger    *slog.Logger
}

func NewPaymentHandler(svc *payment.Service, signature *payment.SignatureVerifier, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: svc, signature: signature, logger: logger}
}

type registerPaymentReq struct {
	PaymentID string `json:"paymentId"`
	Purpose   string `json:"purpose"`
	Amount    int64  `json:"amount"`
}

func (h *PaymentHandler) Register(c *gin.Context) {
	var req registerPaymentReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.Register(c.Request.Context(), payment.RegisterCommand{
		OrderID:   pathID(c),
		PaymentID: req.PaymentID,
		Purpose:   payment.Purpose(req.Purpose),
		Amount:    req.Amount,
		AdminID:   callerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

// Webhook acknowledges every authentic delivery with 200, including ones
// that fail to process, so the gateway does not retry. Failures are logged.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("webhook read failed", "err", err)
		writeJSON(c, http.StatusOK, gin.H{"received": true})
		return
	}
	if err := h.signature.Verify(c.Request.Header, body); err != nil {
		writeJSON(c, http.StatusUnauthorized, errorResponse{Error: "invalid_webhook_signature", Message: err.Error()})
		return
	}

	out, err := h.payments.HandleWebhook(c.Request.Context(), body)
	if err != nil {
		h.logger.Error("webhook processing failed", "payment_id", out.PaymentID, "type", out.Type, "err", err)
		writeJSON(c, http.StatusOK, gin.H{"received": true})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"received": true, "duplicate": out.Duplicate})
}
