package handlers

import (
	"encoding/json"
	"net/http"

	"relay-backend/application/services"
	"relay-backend/pkg/common"
	apperrors "relay-backend/pkg/errors"
	"relay-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ConversationHandler exposes the conversation registry over REST
type ConversationHandler struct {
	conversations *services.ConversationService
	logger        *zap.Logger
}

// NewConversationHandler creates a conversation handler
func NewConversationHandler(conversations *services.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// CreateConversationRequest is the create payload
type CreateConversationRequest struct {
	Title             string   `json:"title" validate:"max=255"`
	Type              string   `json:"type" validate:"required,oneof=DIRECT GROUP"`
	Metadata          string   `json:"metadata"`
	ParticipantEmails []string `json:"participant_emails" validate:"required,min=1,dive,email"`
}

// AddParticipantRequest is the membership payload
type AddParticipantRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	view, err := h.conversations.Create(r.Context(), services.CreateConversationInput{
		Title:             req.Title,
		Type:              req.Type,
		Metadata:          req.Metadata,
		ParticipantEmails: req.ParticipantEmails,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/conversations/{conversationID}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.conversations.GetByID(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// List handles GET /api/v1/conversations?email=
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "email query parameter is required")
		return
	}

	views, err := h.conversations.ListForUser(r.Context(), email)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, views)
}

// Delete handles DELETE /api/v1/conversations/{conversationID}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.conversations.Delete(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		common.RespondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddParticipant handles POST /api/v1/conversations/{conversationID}/participants
func (h *ConversationHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	view, err := h.conversations.AddParticipant(r.Context(), chi.URLParam(r, "conversationID"), req.Email)
	if err != nil {
		if apperrors.IsAlreadyMember(err) {
			h.logger.Debug("duplicate membership add",
				zap.String("conversationID", chi.URLParam(r, "conversationID")),
				zap.String("email", req.Email),
			)
		}
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// RemoveParticipant handles DELETE /api/v1/conversations/{conversationID}/participants/{email}
func (h *ConversationHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	view, err := h.conversations.RemoveParticipant(r.Context(), chi.URLParam(r, "conversationID"), chi.URLParam(r, "email"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}
