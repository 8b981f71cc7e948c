package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func addrParam(r *http.Request, name string) (domain.Addr, error) {
	return domain.ParseAddr(chi.URLParam(r, name))
}
