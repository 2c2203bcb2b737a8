// Package progress tracks the client-side progress of an analysis job.
package progress

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StorageKey is the key the tracker state is persisted under.
const StorageKey = "analyzing-store"

// NoJob is the JobID of a tracker with no active job.
const NoJob int64 = -1

// Phase is the lifecycle position of the tracked job.
type Phase int

const (
	Idle Phase = iota
	Running
	Completed
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "idle":
		return Idle, nil
	case "running":
		return Running, nil
	case "completed":
		return Completed, nil
	case "errored":
		return Errored, nil
	default:
		return Idle, fmt.Errorf("unknown phase %q", s)
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// State is a snapshot of the tracker.
type State struct {
	Phase               Phase  `json:"phase"`
	Percent             int    `json:"percent"`
	JobID               int64  `json:"jobId"`
	AnalysisID          string `json:"analysisId,omitempty"`
	NotificationVisible bool   `json:"notificationVisible"`
	Err                 string `json:"error,omitempty"`
}

// Initial returns the state of a fresh tracker.
func Initial() State {
	return State{Phase: Idle, JobID: NoJob}
}

// Running reports whether a job has been started and not reset. Completed
// jobs count as running, matching how the header decides to show progress.
func (s State) Running() bool {
	return s.Phase == Running || s.Phase == Completed
}

// Completed reports whether the job finished.
func (s State) Completed() bool {
	return s.Phase == Completed
}

// Analysis is the id the backend knows the job by. States loaded from the
// web client carry only the numeric JobID, which is used instead.
func (s State) Analysis() string {
	if s.AnalysisID != "" {
		return s.AnalysisID
	}
	if s.JobID == NoJob {
		return ""
	}
	return strconv.FormatInt(s.JobID, 10)
}

// envelope is the persisted document: {"state": {...}, "version": N}.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

const stateVersion = 1

// legacyState is the version 0 document written by the web client.
type legacyState struct {
	IsAnalyzing      bool  `json:"isAnalyzing"`
	IsCompleted      bool  `json:"isCompleted"`
	AnalyzingPercent int   `json:"analyzingPercent"`
	AnalyzeID        int64 `json:"analyzeId"`
	ShowNotification bool  `json:"showNotification"`
}

func encodeState(s State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: raw, Version: stateVersion})
}

func decodeState(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if len(env.State) == 0 {
		return State{}, fmt.Errorf("missing state")
	}

	if env.Version == 0 {
		var old legacyState
		if err := json.Unmarshal(env.State, &old); err != nil {
			return State{}, fmt.Errorf("decoding legacy state: %w", err)
		}
		return fromLegacy(old), nil
	}

	s := Initial()
	if err := json.Unmarshal(env.State, &s); err != nil {
		return State{}, fmt.Errorf("decoding state: %w", err)
	}
	return normalize(s), nil
}

func fromLegacy(old legacyState) State {
	s := State{
		Percent:             old.AnalyzingPercent,
		JobID:               old.AnalyzeID,
		NotificationVisible: old.ShowNotification,
	}
	switch {
	case old.IsAnalyzing && old.IsCompleted:
		s.Phase = Completed
	case old.IsAnalyzing:
		s.Phase = Running
	default:
		// (false, true) has no meaning; treat it as idle.
		s.Phase = Idle
	}
	return normalize(s)
}

func normalize(s State) State {
	s.Percent = clampPercent(s.Percent)
	if s.Phase != Errored {
		s.Err = ""
	}
	return s
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
