// Package response writes the single JSON envelope every endpoint uses.
//
// Success: {"success":true,"status":200,"data":...,"count":3}
// Failure: {"success":false,"status":409,"kind":"insufficient_stock","message":"..."}
package response

import (
	"encoding/json"
	"net/http"

	"github.com/shashiranjanraj/zepto/pkg/apperr"
)

// Envelope is the wire shape of every response body.
type Envelope struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Kind    apperr.Kind       `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Meta    any               `json:"meta,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Write encodes body with status.
func Write(w http.ResponseWriter, status int, body Envelope) {
	body.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends 200 with data.
func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends 201 with data.
func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// List sends 200 with items and their count.
func List(w http.ResponseWriter, items any, count int, meta any) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &count, Meta: meta})
}

// Error sends a failure with an explicit status. The kind is derived from
// the status so clients can always switch on it.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Kind: kindForStatus(status), Message: message})
}

// Fail maps err through apperr and sends it.
func Fail(w http.ResponseWriter, err error) {
	kind, msg, fields := apperr.Public(err)
	Write(w, apperr.HTTPStatus(kind), Envelope{Kind: kind, Message: msg, Errors: fields})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.KindInvalidArgument
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return apperr.KindInternal
	}
}
