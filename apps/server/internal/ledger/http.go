package ledger

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"blackjack-lite/apps/server/internal/auth"
)

type HTTPHandler struct {
	service        Service
	auth           auth.Service
	defaultBalance int64
}

type balanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(service Service, authService auth.Service, defaultBalance int64) *HTTPHandler {
	return &HTTPHandler{service: service, auth: authService, defaultBalance: defaultBalance}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/balance", h.handleBalance)
}

func (h *HTTPHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	_, username, ok := h.auth.ResolveSession(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	balance, err := h.service.Balance(r.Context(), username, h.defaultBalance)
	if err != nil {
		log.Printf("[Ledger] balance lookup failed: user=%s err=%v", username, err)
		writeError(w, http.StatusInternalServerError, "balance lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: username, Balance: balance})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
