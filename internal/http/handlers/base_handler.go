// README: Base handler utilities (JSON helpers, error mapping, caller identity).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhub/internal/apperr"
	"helperhub/internal/http/middleware"
	"helperhub/internal/modules/order"
	"helperhub/internal/types"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

// writeError renders any service error with its classified status and code.
// Internal errors never leak their message.
func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if apperr.Is(err, apperr.KindExternalService) {
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		writeJSON(c, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(c, status, errorResponse{Error: apperr.CodeOf(err), Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	writeJSON(c, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: msg})
}

// bindJSON decodes the body into v and writes a 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid json: "+err.Error())
		return false
	}
	return true
}

func callerID(c *gin.Context) types.ID {
	return types.ID(middleware.CallerUID(c))
}

// callerActor maps the role claim to an order actor.
func callerActor(c *gin.Context) order.Actor {
	return order.Actor(middleware.CallerRole(c))
}

func pathID(c *gin.Context) types.ID {
	return types.ID(c.Param("id"))
}
