package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/go-github/v81/github"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// badRequestError marks caller input problems.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps an error to the response status. Upstream GitHub failures
// are reported as gateway errors unless they describe the caller's request.
func statusFor(err error) int {
	var (
		badReq    *badRequestError
		rateErr   *github.RateLimitError
		abuseErr  *github.AbuseRateLimitError
		githubErr *github.ErrorResponse
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return http.StatusTooManyRequests
	case errors.As(err, &githubErr) && githubErr.Response != nil:
		switch githubErr.Response.StatusCode {
		case http.StatusNotFound:
			return http.StatusNotFound
		case http.StatusUnprocessableEntity:
			return http.StatusBadRequest
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}
	writeError(w, status, err.Error())
}
