// Package httpx provides JSON response helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrEmptyBody indicates the request carried no JSON body. Endpoints with
// fully optional bodies treat it as an empty object.
var ErrEmptyBody = errors.New("empty request body")

// ErrorBody is the structured error envelope rendered to callers.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends the structured error envelope.
func Error(w http.ResponseWriter, status int, body ErrorBody) {
	JSON(w, status, map[string]any{"error": body})
}

// BadRequest is a shorthand for input-validation rejections that never
// reach the service layer.
func BadRequest(w http.ResponseWriter, message string, detail map[string]any) {
	Error(w, http.StatusBadRequest, ErrorBody{Code: "BAD_REQUEST", Message: message, Detail: detail})
}

// DecodeJSON decodes the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}
