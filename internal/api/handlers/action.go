package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/dialogreply/internal/service"
)

type ActionHandler struct {
	svc *service.DialogService
}

func NewActionHandler(svc *service.DialogService) *ActionHandler {
	return &ActionHandler{svc: svc}
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	action, err := addrParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid action id")
		return
	}

	status, err := h.svc.ActionStatus(r.Context(), action)
	if err != nil {
		if errors.Is(err, service.ErrActionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
