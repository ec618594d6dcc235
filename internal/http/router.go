// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/http/handlers"
	"helperhub/internal/http/middleware"
	"helperhub/internal/infra"
	"helperhub/internal/modules/application"
	"helperhub/internal/modules/checkin"
	"helperhub/internal/modules/dispute"
	"helperhub/internal/modules/order"
	"helperhub/internal/modules/payment"
	"helperhub/internal/modules/pricing"
	"helperhub/internal/modules/settlement"
)

const (
	roleHelper    = string(order.ActorHelper)
	roleRequester = string(order.ActorRequester)
	roleAdmin     = string(order.ActorAdmin)
)

type RouterDeps struct {
	Order        *order.Service
	Applications *application.Service
	CheckIn      *checkin.Service
	Pricing      *pricing.Service
	Disputes     *dispute.Service
	Settlement   *settlement.Service
	Payments     *payment.Service
	Signature    *payment.SignatureVerifier
	Verifier     infra.TokenVerifier
	Logger       *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	paymentHandler := handlers.NewPaymentHandler(deps.Payments, deps.Signature, deps.Logger)
	r.POST("/webhooks/payment", paymentHandler.Webhook)

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	helper := middleware.RequireRole(roleHelper)
	requester := middleware.RequireRole(roleRequester)
	admin := middleware.RequireRole(roleAdmin)

	orderHandler := handlers.NewOrderHandler(deps.Order, deps.Applications)
	api.POST("/orders", requester, orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/applications", helper, orderHandler.Apply)
	api.POST("/applications/:id/decision", middleware.RequireRole(roleRequester, roleAdmin), orderHandler.Decide)
	api.POST("/orders/:id/closing", helper, orderHandler.SubmitClosing)
	api.GET("/orders/:id/closing", orderHandler.ClosingReport)

	disputeHandler := handlers.NewDisputeHandler(deps.Disputes)
	api.POST("/orders/:id/disputes", middleware.RequireRole(roleHelper, roleRequester), disputeHandler.File)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.GET("/pricing/quote", pricingHandler.Quote)

	checkInHandler := handlers.NewCheckInHandler(deps.CheckIn)
	api.POST("/checkins/qr", helper, checkInHandler.ByQR)
	api.POST("/checkins/code", helper, checkInHandler.ByCode)
	api.POST("/checkins/order/:id", helper, checkInHandler.ByOrder)
	api.POST("/requesters/me/qr-token", requester, checkInHandler.IssueQRToken)
	api.GET("/requesters/me/code", requester, checkInHandler.RequesterCode)

	settlementHandler := handlers.NewSettlementHandler(deps.Settlement)

	adm := api.Group("/admin", admin)
	adm.GET("/courier-settings", pricingHandler.ListSettings)
	adm.GET("/courier-settings/:id", pricingHandler.GetSetting)
	adm.POST("/courier-settings", pricingHandler.CreateSetting)
	adm.PUT("/courier-settings/:id", pricingHandler.UpdateSetting)
	adm.DELETE("/courier-settings/:id", pricingHandler.DeleteSetting)
	adm.POST("/orders/:id/match", orderHandler.Match)
	adm.POST("/orders/:id/cancel", orderHandler.Cancel)
	adm.POST("/orders/:id/close", orderHandler.Close)
	adm.POST("/orders/:id/status", orderHandler.Transition)
	adm.POST("/orders/:id/payments", paymentHandler.Register)
	adm.PATCH("/disputes/:id/status", disputeHandler.UpdateStatus)
	adm.POST("/deductions", settlementHandler.CreateDeduction)
	adm.POST("/settlements", settlementHandler.Generate)

	return r
}
