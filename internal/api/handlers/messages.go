package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rkany/pigeon/internal/api/middleware"
	"github.com/rkany/pigeon/internal/assets"
	"github.com/rkany/pigeon/internal/store"
	"github.com/rkany/pigeon/pkg/logger"
	"github.com/rkany/pigeon/pkg/types"
)

// Dispatcher is the delivery surface the message handler needs from the hub.
type Dispatcher interface {
	Deliver(receiverID string, msg types.Message)
}

type MessageHandler struct {
	store      *store.Store
	dispatcher Dispatcher
	uploads    assets.Uploader
}

func NewMessageHandler(s *store.Store, dispatcher Dispatcher, uploads assets.Uploader) *MessageHandler {
	return &MessageHandler{
		store:      s,
		dispatcher: dispatcher,
		uploads:    uploads,
	}
}

// ListCounterparts handles GET /v1/messages/users (the conversation sidebar).
func (h *MessageHandler) ListCounterparts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	users, err := h.store.Counterparts(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("ListCounterparts failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetConversation handles GET /v1/messages/:id, returning the decrypted
// history with the counterpart in store order.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	counterpartID := c.Param("id")

	messages, err := h.store.Conversation(c.Request.Context(), userID, counterpartID)
	if err != nil {
		logger.Errorf("GetConversation failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage handles POST /v1/messages/send/:id.
//
// Flow: validate, upload inline image, encrypt and persist, then fan out the
// decrypted record to the recipient's live endpoint. Delivery is best effort
// and never fails the request; persistence already succeeded.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, _ := middleware.GetUserID(c)
	receiverID := c.Param("id")

	var req types.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Text == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "message cannot be empty"})
		return
	}

	var imageURL string
	if req.Image != "" {
		url, err := h.uploads.Upload(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid image payload"})
			return
		}
		imageURL = url
	}

	msg, err := h.store.SaveMessage(c.Request.Context(), senderID, receiverID, req.Text, imageURL)
	if errors.Is(err, store.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "message cannot be empty"})
		return
	}
	if err != nil {
		// Nothing was dispatched: a failed persist never reaches the
		// recipient.
		logger.Errorf("SendMessage: SaveMessage failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	h.dispatcher.Deliver(receiverID, msg)

	c.JSON(http.StatusCreated, msg)
}
