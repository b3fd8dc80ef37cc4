package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/asksql/pkg/core"
)

type streamSignals struct {
	Question string `json:"question"`
}

// progressSignals are patched into the page as the query runs.
type progressSignals struct {
	Status    string `json:"status"`
	Attempt   int    `json:"attempt,omitempty"`
	Stage     string `json:"stage,omitempty"`
	LastError string `json:"lastError,omitempty"`
	SQL       string `json:"sql,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleQueryStream runs a question and streams one signal patch per failed
// attempt, then the final SQL and a results fragment.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var signals streamSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(progressSignals{Status: "running", Attempt: 1})

	out, err := s.svc.AskWithProgress(r.Context(), signals.Question, func(f core.AttemptFailure) {
		_ = sse.MarshalAndPatchSignals(progressSignals{
			Status:    "retrying",
			Attempt:   f.Attempt + 1,
			Stage:     string(f.Stage),
			LastError: f.Message,
		})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Debug("streamed query failed", "error", err)
		_ = sse.MarshalAndPatchSignals(progressSignals{Status: "failed", Error: err.Error()})
		_ = sse.ConsoleError(err)
		return
	}

	_ = sse.MarshalAndPatchSignals(progressSignals{Status: "done", Attempt: out.Attempts, SQL: out.SQL})
	if err := sse.PatchElementTempl(resultsTable(out.Result)); err != nil {
		s.logger.Debug("failed to patch results", "error", err)
	}
}

// resultColumns returns the column names of rs, which may be nil.
func resultColumns(rs *core.ResultSet) []string {
	if rs == nil {
		return nil
	}
	return rs.Columns
}
