package handlers

import (
	"net/http"
	"time"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type AuthHandler struct {
	gate services.AccessGate
}

func NewAuthHandler(gate services.AccessGate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

// Token exchanges a staff or CRM secret for a short-lived bearer token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req types.TokenRequest
	if !decode(w, r, &req) {
		return
	}
	token, exp, err := h.gate.IssueStaffToken(req.Secret)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int64(time.Until(exp).Seconds()),
		"expires_at":   exp.UTC(),
	})
}
