package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	elerrors "github.com/vango-dev/elements/internal/errors"
	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/loader"
)

// HealthResponse is the GET /healthz body.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Stats     element.Stats `json:"stats"`
}

// RequestResponse describes one registration request.
type RequestResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status element.Status `json:"status"`
}

// DefineResponse is the POST /definitions body.
type DefineResponse struct {
	Name       string                   `json:"name"`
	Registered bool                     `json:"registered"`
	Errors     []*elerrors.ElementError `json:"errors,omitempty"`
}

// DeclareResponse is the POST /declarations body.
type DeclareResponse struct {
	RequestResponse
	Errors []*elerrors.ElementError `json:"errors,omitempty"`
}

// DocumentResponse is the POST /documents body.
type DocumentResponse struct {
	Requests []RequestResponse        `json:"requests"`
	Errors   []*elerrors.ElementError `json:"errors,omitempty"`
}

func describe(h *element.Handle) RequestResponse {
	return RequestResponse{ID: h.ID(), Name: h.Name(), Status: h.Status()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Stats:     s.engine.Stats(),
	})
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	names := s.engine.RegisteredNames()
	out := make([]*element.Prototype, 0, len(names))
	for _, name := range names {
		if p, ok := s.engine.Registered(name); ok {
			out = append(out, p)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleElement(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.engine.Registered(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, notFound(`"`+name+`" is not registered`).WithElement(name))
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Pending())
}

// decodeBody decodes a single JSON value, rejecting unknown fields and
// trailing data.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badBody(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return badBody(errors.New("body must contain a single JSON object"))
	}
	return nil
}

func (s *Server) handleDefine(w http.ResponseWriter, r *http.Request) {
	var script loader.Script
	if err := s.decodeBody(w, r, &script); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if script.Name == "" {
		writeError(w, r, http.StatusBadRequest, badBody(errors.New("name is required")))
		return
	}

	err := s.engine.Define(r.Context(), script.Name, script.Definition())
	_, registered := s.engine.Registered(script.Name)
	respondJSON(w, http.StatusOK, DefineResponse{
		Name:       script.Name,
		Registered: registered,
		Errors:     problems(err),
	})
}

func (s *Server) handleDeclare(w http.ResponseWriter, r *http.Request) {
	var decl loader.ElementDecl
	if err := s.decodeBody(w, r, &decl); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	h, err := s.engine.RequestRegistration(r.Context(), decl.Declaration(""))
	if h == nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	status := http.StatusAccepted
	if h.Status() == element.StatusRegistered {
		status = http.StatusCreated
	}
	respondJSON(w, status, DeclareResponse{
		RequestResponse: describe(h),
		Errors:          problems(err),
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, badBody(err))
		return
	}
	doc, err := loader.DecodeFormat(formatOf(r), "request", data)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	handles, err := s.loader.Apply(r.Context(), doc)
	resp := DocumentResponse{
		Requests: make([]RequestResponse, 0, len(handles)),
		Errors:   problems(err),
	}
	for _, h := range handles {
		resp.Requests = append(resp.Requests, describe(h))
	}
	respondJSON(w, http.StatusOK, resp)
}

func formatOf(r *http.Request) loader.Format {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/yaml", "application/x-yaml":
		return loader.FormatYAML
	case "application/hcl", "text/plain":
		return loader.FormatHCL
	default:
		return loader.FormatJSON
	}
}
