package api

import (
	"errors"
	"net/http"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/model"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Annotate ---

type annotateRequest struct {
	Text     string                 `json:"text"`
	Comments []*model.CommitComment `json:"comments"`
	Strict   bool                   `json:"strict,omitempty"`
}

type annotateResponse struct {
	Segments []segmentJSON `json:"segments"`
}

type segmentJSON struct {
	Text      string               `json:"text"`
	Annotated bool                 `json:"annotated"`
	Comment   *model.CommitComment `json:"comment,omitempty"`
}

func toSegmentsJSON(segs []annotate.Segment[model.CommitComment]) []segmentJSON {
	out := make([]segmentJSON, len(segs))
	for i, seg := range segs {
		out[i] = segmentJSON{Text: seg.Text, Annotated: seg.Annotated}
		if seg.Annotated {
			c := seg.Annotation.Payload
			out[i].Comment = &c
		}
	}
	return out
}

// segmentText runs the annotator; strict mode reports invalid ranges.
func segmentText(req annotateRequest) ([]annotate.Segment[model.CommitComment], error) {
	anns := annotate.FromComments(req.Comments)
	if req.Strict {
		return annotate.AnnotateStrict(req.Text, anns)
	}
	return annotate.Annotate(req.Text, anns), nil
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	segs, err := segmentText(req)
	if err != nil {
		var rangeErr *annotate.RangeError
		var overlapErr *annotate.OverlapError
		if errors.As(err, &rangeErr) || errors.As(err, &overlapErr) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, annotateResponse{Segments: toSegmentsJSON(segs)})
}

// --- Progress ---

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.tracker.Start()
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.tracker.Complete()
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	s.tracker.Poll()
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.tracker.Reset()
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

type advanceRequest struct {
	Percent *int `json:"percent"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Percent == nil {
		s.writeError(w, http.StatusBadRequest, "percent is required")
		return
	}
	s.tracker.Advance(*req.Percent)
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}

type notificationRequest struct {
	Visible *bool `json:"visible"`
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Visible == nil {
		s.writeError(w, http.StatusBadRequest, "visible is required")
		return
	}
	s.tracker.SetNotificationVisible(*req.Visible)
	s.writeJSON(w, http.StatusOK, s.tracker.State())
}
