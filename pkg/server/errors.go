package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     *elerrors.ElementError `json:"error"`
	RequestID string                 `json:"requestId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	respondJSON(w, status, ErrorResponse{
		Error:     elerrors.FromError(err, "E220"),
		RequestID: RequestID(r.Context()),
	})
}

func badBody(err error) *elerrors.ElementError {
	return elerrors.New("E220").WithDetail(err.Error()).Wrap(err)
}

func notFound(detail string) *elerrors.ElementError {
	return elerrors.New("E221").WithDetail(detail)
}

func rateLimited(limit rate.Limit, burst int) *elerrors.ElementError {
	return elerrors.New("E222").
		WithDetailf("at most %g mutating requests per second, burst %d", float64(limit), burst)
}

// problems flattens joined errors into coded errors for a JSON reply.
func problems(err error) []*elerrors.ElementError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*elerrors.ElementError
		for _, e := range joined.Unwrap() {
			out = append(out, problems(e)...)
		}
		return out
	}
	var ee *elerrors.ElementError
	if errors.As(err, &ee) {
		return []*elerrors.ElementError{ee}
	}
	return []*elerrors.ElementError{{Message: err.Error(), Wrapped: err}}
}
