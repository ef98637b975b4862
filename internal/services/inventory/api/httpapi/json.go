package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	apperrors "github.com/louisbranch/inventag/internal/platform/errors"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON writes a JSON response with the provided status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}

// writeError renders err using its domain code. Errors without a code are
// logged and reported as internal errors.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal error",
			Code:  string(apperrors.CodeUnknown),
		})
		return
	}
	if domainErr.Code.HTTPStatus() == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="inventag"`)
	}
	writeJSON(w, domainErr.Code.HTTPStatus(), errorResponse{
		Error: domainErr.Message,
		Code:  string(domainErr.Code),
	})
}

// decodeJSON reads one JSON object from the request body.
func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid request body: %v", err), err)
	}
	return nil
}
