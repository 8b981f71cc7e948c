package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/service"
)

type MessageHandler struct {
	svc *service.DialogService
}

func NewMessageHandler(svc *service.DialogService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type createMessageRequest struct {
	Text     string `json:"text"`
	Author   string `json:"author,omitempty"`
	Theme    string `json:"theme,omitempty"`
	Language string `json:"language,omitempty"`
}

type createMessageResponse struct {
	Message domain.Addr `json:"message"`
}

type replyResponse struct {
	Action  domain.Addr `json:"action"`
	Message domain.Addr `json:"message"`
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.svc.CreateMessage(r.Context(), service.MessageInput{
		Text:     req.Text,
		Author:   req.Author,
		Theme:    req.Theme,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, service.ErrMessageTextEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create message")
		return
	}

	writeJSON(w, http.StatusCreated, createMessageResponse{Message: message})
}

// Reply starts a reply action. The reply is generated asynchronously; poll
// the returned action for its status.
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	message, err := addrParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	action, err := h.svc.RequestReply(r.Context(), message)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to request reply")
		return
	}

	writeJSON(w, http.StatusAccepted, replyResponse{Action: action, Message: message})
}
