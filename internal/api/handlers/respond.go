package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onboardhub/engine/internal/api/middleware"
	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/api/validators"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// fail writes a service error with its mapped status. Server-side failures are logged.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", middleware.RoutePattern(r)),
			zap.Error(err),
		)
	}
	resp := types.APIResponse{Success: false, Error: types.FromAppError(err), Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into dst and validates it. It writes the 400 itself
// and reports false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeErrorStr(w, http.StatusBadRequest, "request body is empty")
		default:
			writeErrorStr(w, http.StatusBadRequest, "invalid json")
		}
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// uuidParam parses a chi URL parameter. It writes the 400 itself and reports false on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the acting staff or CRM principal. X-Actor-Name optionally
// names the person behind a shared key.
func actorFrom(r *http.Request) services.Actor {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return services.SystemActor
	}
	a := p.Actor()
	if name := r.Header.Get("X-Actor-Name"); name != "" && len(name) <= 200 {
		a.Name = name
	}
	return a
}

func intQuery(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
