package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-quiz-service/internal/domain"
)

func (h *Handler) register(c *gin.Context) {
	var in domain.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.svc.Users.Register(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) login(c *gin.Context) {
	var in domain.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.svc.Users.Login(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
