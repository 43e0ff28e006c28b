package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobnest/internal/messaging"
	"jobnest/internal/metrics"
)

// MessageHandler 负责私信相关的 API 请求。客户端通过轮询获取新消息。
type MessageHandler struct {
	engine *messaging.Engine
}

// NewMessageHandler 构造 MessageHandler。
func NewMessageHandler(engine *messaging.Engine) *MessageHandler {
	return &MessageHandler{engine: engine}
}

type sendMessageRequest struct {
	ReceiverID uint   `json:"receiverId"`
	Message    string `json:"message"`
	JobID      *uint  `json:"jobId"`
}

type markReadRequest struct {
	JobID *uint `json:"jobId"`
}

// Send 发送消息。
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	msg, err := h.engine.Send(c.Request.Context(), userID, req.ReceiverID, req.Message, req.JobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	metrics.ObserveMessageSent()
	c.JSON(http.StatusCreated, msg)
}

// Conversation 返回与某用户的会话，并把对方发来的消息标记为已送达。
func (h *MessageHandler) Conversation(c *gin.Context) {
	otherID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	jobID, err := parseOptionalID(c.Query("jobId"))
	if err != nil {
		BadRequest(c, "invalid jobId")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	messages, err := h.engine.GetConversation(c.Request.Context(), userID, otherID, jobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkRead 把对方发来的消息标记为已读。
func (h *MessageHandler) MarkRead(c *gin.Context) {
	otherID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	// 请求体可省略，分块传输的空 body 同样视为未提供。
	var req markReadRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(c, err.Error())
			return
		}
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	updated, err := h.engine.MarkRead(c.Request.Context(), userID, otherID, req.JobID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

// Delete 删除消息，仅发送方或接收方可操作。
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.engine.DeleteMessage(c.Request.Context(), userID, id); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message deleted"})
}
