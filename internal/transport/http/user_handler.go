package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skill-quiz-service/internal/domain"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.svc.Users.ListUsers(c.Request.Context())
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := h.svc.Users.GetUser(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch domain.UserPatch
	if !bindJSON(c, &patch) {
		return
	}
	u, err := h.svc.Users.UpdateUser(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Users.DeleteUser(c.Request.Context(), id); err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
