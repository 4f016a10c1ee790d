package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Status: "ok", Data: data}); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		s.logger.Error("api error", "code", code, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Status: "error",
		Error:  &APIError{Code: code, Message: message},
	})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, err
	}
	return body, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
