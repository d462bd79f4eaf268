package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"relay-backend/application/services"
	"relay-backend/pkg/common"
	"relay-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageHandler exposes message history and the HTTP send path
type MessageHandler struct {
	messages *services.MessageService
	logger   *zap.Logger
}

// NewMessageHandler creates a message handler
func NewMessageHandler(messages *services.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// SendMessageRequest is the send payload
type SendMessageRequest struct {
	SenderEmail string `json:"sender_email" validate:"required,email"`
	Type        string `json:"type" validate:"omitempty,oneof=TEXT IMAGE VIDEO FILE"`
	Content     string `json:"content"`
}

// SoftDeleteMessageRequest identifies a message by its composite key
type SoftDeleteMessageRequest struct {
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Send handles POST /api/v1/conversations/{conversationID}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	payload, err := h.messages.Send(r.Context(), services.SendMessageInput{
		ConversationID: chi.URLParam(r, "conversationID"),
		SenderEmail:    req.SenderEmail,
		Type:           req.Type,
		Content:        req.Content,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, payload)
}

// Page handles GET /api/v1/conversations/{conversationID}/messages?page=&size=
func (h *MessageHandler) Page(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)

	payloads, err := h.messages.Page(r.Context(), chi.URLParam(r, "conversationID"), params.Page, params.PageSize)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, payloads, &common.MetaInfo{
		Pagination: common.BuildPaginationMeta(params.Page, params.PageSize, len(payloads)),
	})
}

// History handles GET /api/v1/conversations/{conversationID}/messages/all
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	payloads, err := h.messages.History(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, payloads)
}

// SoftDelete handles DELETE /api/v1/conversations/{conversationID}/messages/{messageID}
func (h *MessageHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	var req SoftDeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	err := h.messages.SoftDelete(r.Context(), chi.URLParam(r, "conversationID"), chi.URLParam(r, "messageID"), req.CreatedAt)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
