package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/services"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

type principalKeyType string

const PrincipalKey principalKeyType = "principal"

// StaffAuth accepts either an X-Api-Key secret or a Bearer token issued by the
// gate and stores the resolved principal in the request context.
func StaffAuth(gate services.AccessGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				p   services.Principal
				err error
			)
			if key := r.Header.Get("X-Api-Key"); key != "" {
				p, err = gate.AuthenticateStaff(key)
			} else if ah := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				p, err = gate.ParseStaffToken(strings.TrimSpace(ah[len("Bearer "):]))
			} else {
				err = appErr.Unauthorized("missing credentials")
			}
			if err != nil {
				logger.L().Debug("staff auth rejected", zap.String("id", GetRequestID(r.Context())), zap.Error(err))
				unauthorized(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects principals whose actor type is not listed.
func RequireActor(allowed ...models.ActorType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				unauthorized(w, appErr.Unauthorized("missing credentials"))
				return
			}
			for _, a := range allowed {
				if p.ActorType == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			unauthorized(w, appErr.Unauthorized("credentials not valid for this route"))
		})
	}
}

func GetPrincipal(ctx context.Context) (services.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(services.Principal)
	return p, ok
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.APIResponse{Success: false, Error: types.FromAppError(err)})
}
