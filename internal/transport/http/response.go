package httptransport

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"storefront-tma-backend/internal/apperror"
	"storefront-tma-backend/internal/logger"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// requestLog scopes log to the request id assigned by RequestLogger.
func requestLog(log *zap.Logger, r *http.Request) *zap.Logger {
	return logger.WithRequestID(log, RequestIDFromContext(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data, Message: message})
}

// writeError renders err as the error envelope. Only Code, Message and
// Details reach the client; server-side failures are logged with their cause.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e := apperror.From(err)

	l := requestLog(log, r).With(zap.String("code", e.Code), zap.String("path", r.URL.Path))
	if e.Status >= http.StatusInternalServerError {
		l.Error("request failed", zap.Error(err))
	} else {
		l.Debug("request rejected")
	}

	writeJSON(w, e.Status, errorEnvelope{
		Error: errorBody{Code: e.Code, Message: e.Message, Details: e.Details},
	})
}
