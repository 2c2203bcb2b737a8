package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dev101/coa/internal/model"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, code int, msg string, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"isSuccess": success,
		"code":      code,
		"message":   msg,
		"result":    result,
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret")
}

func TestStartAnalysis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/repos/analysis" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing request id")
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatal(err)
		}
		if req["repoUrl"] != "https://github.com/dev101/coa" || req["userName"] != "kim" {
			t.Errorf("unexpected body %s", body)
		}
		if _, ok := req["projectId"]; ok {
			t.Error("projectId should be omitted for github repos")
		}
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", "42")
	})

	id, err := c.StartAnalysis(context.Background(), AnalysisRequest{
		RepoURL:  "https://github.com/dev101/coa",
		UserName: "kim",
	})
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if id != "42" {
		t.Errorf("expected id 42, got %q", id)
	}
}

func TestStartAnalysisRequiresURL(t *testing.T) {
	c := New("http://unused", "")
	if _, err := c.StartAnalysis(context.Background(), AnalysisRequest{}); err == nil {
		t.Error("expected error for empty repo url")
	}
}

func TestCheckAnalysis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/repos/analysis/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", map[string]any{"analysisId": "42", "percentage": 70})
	})

	check, err := c.CheckAnalysis(context.Background(), "42")
	if err != nil {
		t.Fatal(err)
	}
	if check.AnalysisID != "42" || check.Percentage != 70 {
		t.Errorf("unexpected check %+v", check)
	}
}

func TestRetryAnalysisError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, DefaultRetryCode, "retry", nil)
	})

	_, err := c.CheckAnalysis(context.Background(), "42")
	if !errors.Is(err, ErrRetryAnalysis) {
		t.Fatalf("expected ErrRetryAnalysis, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected *APIError")
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "retry" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("retry error should not match ErrNotFound")
	}
}

func TestCustomRetryCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, 4321, "again", nil)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithRetryCode(4321))
	if _, err := c.CheckAnalysis(context.Background(), "1"); !errors.Is(err, ErrRetryAnalysis) {
		t.Errorf("expected ErrRetryAnalysis, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such repo view", http.StatusNotFound)
	})

	_, err := c.RepoView(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "no such repo view" {
		t.Errorf("expected raw body as message, got %q", apiErr.Message)
	}
}

func TestDoneAnalysis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/repos/analysis/done/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", map[string]any{
			"repoCardDto": map[string]any{"memberNickname": "kim", "repoViewTitle": "coa"},
			"basicDetailDto": map[string]any{
				"repoReadme":     "# coa",
				"repoViewResult": "abcdefgh",
				"commentList": []map[string]any{
					{"commentStartIndex": 2, "commentEndIndex": 5, "commentContent": "X"},
				},
			},
			"commitScoreDto": map[string]any{"readability": 80, "total": 77},
		})
	})

	detail, err := c.DoneAnalysis(context.Background(), "42")
	if err != nil {
		t.Fatal(err)
	}
	if detail.RepoCard.Title != "coa" || detail.BasicDetail.RepoViewResult != "abcdefgh" {
		t.Errorf("unexpected detail %+v", detail)
	}
	if len(detail.BasicDetail.CommentList) != 1 || detail.BasicDetail.CommentList[0].Content != "X" {
		t.Errorf("unexpected comments %+v", detail.BasicDetail.CommentList)
	}
	if detail.CommitScore == nil || detail.CommitScore.Total != 77 {
		t.Errorf("unexpected score %+v", detail.CommitScore)
	}
}

func TestSaveAnalysis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/repos/42" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Title != "coa" || len(req.SkillIDs) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", 9)
	})

	id, err := c.SaveAnalysis(context.Background(), "42", SaveRequest{Title: "coa", SkillIDs: []int64{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if id != 9 {
		t.Errorf("expected repo view 9, got %d", id)
	}
}

func TestEditComments(t *testing.T) {
	var got []model.CommitComment
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/repos/comments/9" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", nil)
	})

	if err := c.EditComments(context.Background(), 9, nil); err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty JSON array, got %#v", got)
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	})
	if _, err := c.CheckAnalysis(context.Background(), "1"); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, 1000, "ok", "1")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.StartAnalysis(ctx, AnalysisRequest{RepoURL: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
