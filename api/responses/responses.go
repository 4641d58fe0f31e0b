package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const fallbackBody = `{"status":0,"msg":"internal server error","code":"INTERNAL_ERROR"}`

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Payload: data})
}

// WriteMessage writes a success envelope with a human-readable msg.
func WriteMessage(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Msg: msg, Payload: data})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	WriteErrorStatus(ctx, logg, w, err, 0)
}

// WriteErrorStatus is WriteError with an explicit HTTP status; zero keeps the
// status mapped from the error code.
func WriteErrorStatus(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, status int) {
	typed := pkgerrors.Normalize(err)
	mapped := pkgerrors.Status(typed)

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.TraceOf(typed).Fields())
		if mapped >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", typed)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	if status == 0 {
		status = mapped
	}
	writeJSON(w, status, types.ErrorEnvelope{
		Status:  types.StatusError,
		Msg:     pkgerrors.PublicMessage(typed),
		Code:    string(typed.Code()),
		Details: pkgerrors.PublicDetails(typed),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallbackBody + "\n"))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
