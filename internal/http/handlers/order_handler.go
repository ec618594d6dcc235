// README: Order handlers for create/get, applications, closing reports and admin order actions.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"helperhub/internal/modules/application"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type OrderHandler struct {
	order        *order.Service
	applications *application.Service
}

func NewOrderHandler(orders *order.Service, applications *application.Service) *OrderHandler {
	return &OrderHandler{order: orders, applications: applications}
}

type createOrderReq struct {
	CompanyName   string `json:"companyName"`
	Category      string `json:"category"`
	Quantity      int    `json:"quantity"`
	IsUrgent      bool   `json:"isUrgent"`
	ScheduledDate string `json:"scheduledDate"`
	EndDate       string `json:"endDate"`
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if !bindJSON(c, &req) {
		return
	}
	scheduled, ok := parseDate(req.ScheduledDate)
	if !ok {
		badRequest(c, "scheduledDate must be RFC 3339 or YYYY-MM-DD")
		return
	}
	var end *time.Time
	if req.EndDate != "" {
		t, ok := parseDate(req.EndDate)
		if !ok {
			badRequest(c, "endDate must be RFC 3339 or YYYY-MM-DD")
			return
		}
		end = &t
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		RequesterID:   callerID(c),
		CompanyName:   req.CompanyName,
		Category:      req.Category,
		Quantity:      req.Quantity,
		IsUrgent:      req.IsUrgent,
		ScheduledDate: scheduled,
		EndDate:       end,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.order.Get(c.Request.Context(), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Apply(c *gin.Context) {
	app, err := h.applications.Apply(c.Request.Context(), application.ApplyCommand{
		OrderID:  pathID(c),
		HelperID: callerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, app)
}

type decisionReq struct {
	Decision string `json:"decision"`
}

func (h *OrderHandler) Decide(c *gin.Context) {
	var req decisionReq
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.applications.Decide(c.Request.Context(), application.DecideCommand{
		ApplicationID: pathID(c),
		Decision:      application.Decision(req.Decision),
		Actor:         callerActor(c),
		ActorID:       callerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, app)
}

type closingReq struct {
	DeliveredCount int    `json:"deliveredCount"`
	Memo           string `json:"memo"`
}

func (h *OrderHandler) SubmitClosing(c *gin.Context) {
	var req closingReq
	if !bindJSON(c, &req) {
		return
	}
	report, o, err := h.order.SubmitClosing(c.Request.Context(), order.ClosingCommand{
		OrderID:        pathID(c),
		HelperID:       callerID(c),
		DeliveredCount: req.DeliveredCount,
		Memo:           req.Memo,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"closingReport": report, "orderStatus": o.Status})
}

type matchReq struct {
	HelperID string `json:"helperId"`
}

func (h *OrderHandler) Match(c *gin.Context) {
	var req matchReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.order.Match(c.Request.Context(), order.MatchCommand{
		OrderID:  pathID(c),
		HelperID: types.ID(req.HelperID),
		AdminID:  callerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID: pathID(c),
		Actor:   callerActor(c),
		ActorID: callerID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) ClosingReport(c *gin.Context) {
	r, err := h.order.GetClosingReport(c.Request.Context(), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

type transitionReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Transition lets an admin fire any edge the state machine grants them,
// such as marking a manually settled payment.
func (h *OrderHandler) Transition(c *gin.Context) {
	var req transitionReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.order.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID: pathID(c),
		To:      order.Status(req.Status),
		Actor:   callerActor(c),
		ActorID: callerID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Close(c *gin.Context) {
	o, err := h.order.Close(c.Request.Context(), pathID(c), callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
