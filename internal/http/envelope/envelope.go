// Package envelope implements the uniform {success, data, message, error}
// response body shared by every route.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Write encodes env with the given status code.
func Write[T any](w http.ResponseWriter, status int, env Envelope[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a successful envelope carrying data.
func OK(w http.ResponseWriter, status int, data any, message string) {
	Write(w, status, Envelope[any]{Success: true, Data: data, Message: message})
}

// Message writes a successful envelope with no payload.
func Message(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope[any]{Success: true, Message: message})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, errMsg string) {
	Write(w, status, Envelope[any]{Success: false, Error: errMsg})
}
