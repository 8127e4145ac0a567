// Package handlers holds the response helpers shared by the HTTP handlers
// in its subpackages.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
	"github.com/goalcast/core/pkg/services"
)

const maxBodyBytes = 1 << 20

// JSON writes the envelope with the given status code.
func JSON(w http.ResponseWriter, log *logger.Logger, status int, resp api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().
			Err(err).
			Str("action", "encode_response_failed").
			Msg("Failed to encode response")
	}
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, log *logger.Logger, data, meta interface{}) {
	JSON(w, log, http.StatusOK, api.Response{Success: true, Data: data, Meta: meta})
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, log *logger.Logger, data interface{}) {
	JSON(w, log, http.StatusCreated, api.Response{Success: true, Data: data})
}

// Message writes a successful envelope carrying only a message.
func Message(w http.ResponseWriter, log *logger.Logger, msg string) {
	JSON(w, log, http.StatusOK, api.Response{Success: true, Message: msg})
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrNotFound), errors.Is(err, content.ErrNoContent):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Fail logs err and writes the matching error envelope. Internal errors are
// not echoed to the client.
func Fail(w http.ResponseWriter, log *logger.Logger, action string, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("action", action).Msg("Request failed")
		msg = "internal server error"
	} else {
		log.Debug().Err(err).Str("action", action).Int("status_code", status).Msg("Request rejected")
	}
	JSON(w, log, status, api.Response{Success: false, Error: msg})
}

// Invalid wraps a validation message in services.ErrInvalidInput.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", services.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return Invalid("invalid request body: %v", err)
	}
	return nil
}

// PathID parses the {id} path segment.
func PathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, Invalid("invalid id %q", r.PathValue("id"))
	}
	return int32(id), nil
}

// QueryInt reads an integer query parameter clamped to [0, max].
func QueryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// QueryString returns a pointer to a non-empty query parameter.
func QueryString(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}
