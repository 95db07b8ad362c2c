package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parley/internal/auth"
	"parley/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler interface {
	GetInitialInfo(c *gin.Context)
	GetRoomMessages(c *gin.Context)
}

type chatHandler struct {
	service       service.ChatService
	authenticator *auth.Authenticator
}

func NewChatHandler(service service.ChatService, authenticator *auth.Authenticator) ChatHandler {
	return &chatHandler{
		service:       service,
		authenticator: authenticator,
	}
}

// GetInitialInfo returns every conversation of the authenticated user with
// its latest message and participant roster.
func (h *chatHandler) GetInitialInfo(c *gin.Context) {
	user, err := h.authenticator.ResolveBearer(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	info, err := h.service.GetInitialInfo(c.Request.Context(), user.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get conversations",
		})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *chatHandler) GetRoomMessages(c *gin.Context) {
	user, err := h.authenticator.ResolveBearer(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	roomID := c.Param("roomId")
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid page number",
		})
		return
	}

	msgs, err := h.service.GetRoomMessages(c.Request.Context(), user.UserID, roomID, pageNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Not a member of this room",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get messages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
	})
}
