package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/pipeline"
)

const maxBodyBytes = 1 << 20

type questionRequest struct {
	Question     string `json:"question"`
	Instructions string `json:"instructions,omitempty"`
}

type validateRequest struct {
	Question     string `json:"question"`
	Instructions string `json:"instructions,omitempty"`

	// A non-empty Suggestion revalidates Question, or Previous.OriginalQuery
	// when Question is empty.
	Previous   *core.Verdict `json:"previous,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

type failureJSON struct {
	Attempt int    `json:"attempt"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type queryResponse struct {
	Question string        `json:"question"`
	SQL      string        `json:"sql"`
	Columns  []string      `json:"columns"`
	Rows     [][]string    `json:"rows"`
	Attempts int           `json:"attempts"`
	Failures []failureJSON `json:"failures,omitempty"`
}

type verdictResponse struct {
	*core.Verdict
	Changed bool `json:"changed"`
}

type errorResponse struct {
	Error    string        `json:"error"`
	Kind     string        `json:"kind,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Failures []failureJSON `json:"failures,omitempty"`
}

type tableJSON struct {
	Name    string       `json:"name"`
	Columns []columnJSON `json:"columns"`
}

type columnJSON struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

type schemaResponse struct {
	Text   string      `json:"text"`
	Tables []tableJSON `json:"tables"`
	Refs   []string    `json:"refs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	sch := s.svc.Schema()
	resp := schemaResponse{
		Text:   sch.Text(),
		Tables: make([]tableJSON, 0, len(sch.Tables())),
		Refs:   make([]string, 0, len(sch.Refs())),
	}
	for _, t := range sch.Tables() {
		tj := tableJSON{Name: t.Name, Columns: make([]columnJSON, 0, len(t.Columns))}
		for _, c := range t.Columns {
			tj.Columns = append(tj.Columns, columnJSON{Name: c.Name, Type: c.Type, PrimaryKey: c.PrimaryKey})
		}
		resp.Tables = append(resp.Tables, tj)
	}
	for _, ref := range sch.Refs() {
		resp.Refs = append(resp.Refs, ref.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExamples(w http.ResponseWriter, _ *http.Request) {
	questions := s.svc.Questions()
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		v   *core.Verdict
		err error
	)
	if strings.TrimSpace(req.Suggestion) != "" {
		question := req.Question
		if strings.TrimSpace(question) == "" && req.Previous != nil {
			question = req.Previous.OriginalQuery
		}
		v, err = s.svc.Revalidate(r.Context(), question, req.Suggestion)
	} else {
		v, err = s.svc.Validate(r.Context(), req.Question, req.Instructions)
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{Verdict: v, Changed: v.Changed()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.runQuery(w, r, req.Question)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, question string) {
	out, err := s.svc.AskWithProgress(r.Context(), question, nil)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQueryResponse(question, out))
}

func newQueryResponse(question string, out *pipeline.Outcome) queryResponse {
	resp := queryResponse{
		Question: question,
		SQL:      out.SQL,
		Columns:  []string{},
		Rows:     [][]string{},
		Attempts: out.Attempts,
		Failures: failuresJSON(out.Log),
	}
	if out.Result != nil {
		if out.Result.Columns != nil {
			resp.Columns = out.Result.Columns
		}
		if out.Result.Rows != nil {
			resp.Rows = out.Result.Rows
		}
	}
	return resp
}

func failuresJSON(log []core.AttemptFailure) []failureJSON {
	if len(log) == 0 {
		return nil
	}
	out := make([]failureJSON, 0, len(log))
	for _, f := range log {
		out = append(out, failureJSON{Attempt: f.Attempt, Stage: string(f.Stage), Message: f.Message})
	}
	return out
}

// writeFailure maps engine errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		exhausted *core.RetryBudgetExhaustedError
		malformed *core.MalformedVerdictError
	)

	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, core.ErrEmptyQuestion):
		status = http.StatusBadRequest
		resp.Kind = "empty_question"
	case errors.As(err, &exhausted):
		status = http.StatusUnprocessableEntity
		resp.Kind = "retries_exhausted"
		resp.Attempts = exhausted.Attempts
		resp.Failures = failuresJSON(exhausted.Log)
	case errors.As(err, &malformed):
		status = http.StatusBadGateway
		resp.Kind = "malformed_verdict"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		resp.Kind = "timeout"
	case errors.Is(err, context.Canceled):
		// client went away
		return
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  "bad_request",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
