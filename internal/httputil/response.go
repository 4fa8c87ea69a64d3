package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/logging"
)

// MsgInternal is the only message clients see for unexpected failures.
const MsgInternal = "something went wrong, please try again later"

// Envelope is the JSON body shared by every response:
// {"status": <code>, "msg": "...", ...data}.
type Envelope map[string]any

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Respond writes the envelope with status and an optional message merged in.
func Respond(w http.ResponseWriter, statusCode int, msg string, data Envelope) {
	body := make(Envelope, len(data)+2)
	for k, v := range data {
		body[k] = v
	}
	body["status"] = statusCode
	if msg != "" {
		body["msg"] = msg
	}
	RespondJSON(w, body, statusCode)
}

// RespondError sends {"status": code, "msg": message}.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	Respond(w, statusCode, message, nil)
}

// RespondErr is the single translation point from service errors to HTTP.
// Classified errors keep their message; anything else becomes a 500 with a
// fixed message and is logged with the request logger.
func RespondErr(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal || kind == apperror.KindDependency {
		logger.Error("request failed", "error", err)
		RespondError(w, MsgInternal, http.StatusInternalServerError)
		return
	}

	appErr, _ := apperror.As(err)
	status := kind.StatusCode()
	logger.Warn("request rejected", "status", status, "error", err)
	RespondError(w, appErr.Message, status)
}
