package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/asksql/pkg/core"
)

const reviewSession = "asksql_review"

// Session value keys.
const (
	keyQuestion  = "question"
	keyOriginal  = "original"
	keyCorrected = "corrected"
	keyFeedback  = "feedback"
)

type suggestRequest struct {
	Suggestion string `json:"suggestion"`
}

type confirmRequest struct {
	// Use is "improved" (default) or "original".
	Use string `json:"use"`
}

func (s *Server) session(r *http.Request) *sessions.Session {
	// Get still returns a usable new session when the cookie fails to decode.
	sess, err := s.sessions.Get(r, reviewSession)
	if err != nil {
		s.logger.Debug("discarding review cookie", "error", err)
	}
	return sess
}

func storeVerdict(sess *sessions.Session, v *core.Verdict) {
	sess.Values[keyOriginal] = v.OriginalQuery
	sess.Values[keyCorrected] = v.CorrectedInput
	sess.Values[keyFeedback] = v.Feedback
}

// loadReview returns the question as the operator typed it and the latest
// verdict for it.
func loadReview(sess *sessions.Session) (string, *core.Verdict, bool) {
	question, ok := sess.Values[keyQuestion].(string)
	if !ok {
		return "", nil, false
	}
	original, _ := sess.Values[keyOriginal].(string)
	corrected, _ := sess.Values[keyCorrected].(string)
	feedback, _ := sess.Values[keyFeedback].(string)
	return question, &core.Verdict{OriginalQuery: original, CorrectedInput: corrected, Feedback: feedback}, true
}

func (s *Server) handleReviewStart(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := s.svc.Validate(r.Context(), req.Question, req.Instructions)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	sess := s.session(r)
	sess.Values[keyQuestion] = req.Question
	storeVerdict(sess, v)
	if err := sess.Save(r, w); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{Verdict: v, Changed: v.Changed()})
}

func (s *Server) handleReviewSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := s.session(r)
	question, _, ok := loadReview(sess)
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no question under review", Kind: "no_review"})
		return
	}
	if strings.TrimSpace(req.Suggestion) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "suggestion must not be empty", Kind: "bad_request"})
		return
	}

	v, err := s.svc.Revalidate(r.Context(), question, req.Suggestion)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	storeVerdict(sess, v)
	if err := sess.Save(r, w); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdictResponse{Verdict: v, Changed: v.Changed()})
}

func (s *Server) handleReviewConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := s.session(r)
	original, v, ok := loadReview(sess)
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no question under review", Kind: "no_review"})
		return
	}

	var question string
	switch req.Use {
	case "", "improved":
		question = v.CorrectedInput
	case "original":
		question = original
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: `use must be "improved" or "original"`,
			Kind:  "bad_request",
		})
		return
	}

	// The review ends here whatever the outcome.
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.runQuery(w, r, question)
}
