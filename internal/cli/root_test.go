package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dev101/coa/internal/model"
	"github.com/dev101/coa/internal/progress"
	"github.com/dev101/coa/internal/store"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, want := range []string{"analyze", "status", "reset", "result", "view", "annotate", "serve", "version"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestTrackerAnnotations(t *testing.T) {
	for _, c := range []*cobra.Command{analyzeCmd, statusCmd, resetCmd, resultCmd, serveCmd} {
		if !needsTracker(c) {
			t.Errorf("%s should open the tracker", c.Name())
		}
	}
	for _, c := range []*cobra.Command{viewCmd, annotateCmd, versionCmd} {
		if needsTracker(c) {
			t.Errorf("%s should not open the tracker", c.Name())
		}
	}
}

func TestVersionOutput(t *testing.T) {
	// version vars are set via ldflags; in tests they have their defaults
	if version != "dev" {
		t.Errorf("expected default version %q, got %q", "dev", version)
	}

	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "coa dev (commit none") {
		t.Errorf("version output = %q", out)
	}
}

// isolate keeps a test away from the user's config, .env and state.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"COA_API_URL", "COA_TOKEN", "COA_STORE", "COA_ADDR", "COA_PORT",
		"COA_POLL_INTERVAL", "COA_TIMEOUT"} {
		t.Setenv(k, "")
	}
	t.Setenv("COA_LOG_LEVEL", "error")
	t.Setenv("COA_LOG_FILE", filepath.Join(dir, "coa.log"))
	t.Chdir(dir)
	return dir
}

// resetFlags restores every flag to its default so runs don't leak into each
// other through the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	rootCmd.SetContext(context.Background())

	err := rootCmd.Execute()
	return out.String(), err
}

// seed writes a tracker state into the file store at dir.
func seed(t *testing.T, dir string, fn func(*progress.Tracker)) {
	t.Helper()
	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := progress.New(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	fn(tr)
}

func loadState(t *testing.T, dir string) progress.State {
	t.Helper()
	s, err := store.NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := progress.New(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	return tr.State()
}

func TestStatusIdle(t *testing.T) {
	isolate(t)

	out, err := execute(t, "status", "--store", "mem://")
	if err != nil {
		t.Fatal(err)
	}
	if out != "No analysis in progress.\n" {
		t.Errorf("status = %q", out)
	}
}

func TestStatusCompletedAndDismiss(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	seed(t, stateDir, func(tr *progress.Tracker) {
		tr.SetJobID(42)
		tr.Start()
		tr.Complete()
	})
	storeFlag := "file://" + stateDir

	out, err := execute(t, "status", "--store", storeFlag)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Analysis 42 complete.") || !strings.Contains(out, "coa result") {
		t.Errorf("status = %q", out)
	}

	out, err = execute(t, "status", "--store", storeFlag, "--dismiss", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var s progress.State
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if s.Phase != progress.Completed || s.JobID != 42 || s.NotificationVisible {
		t.Errorf("state = %+v", s)
	}
	if got := loadState(t, stateDir); got.NotificationVisible {
		t.Error("dismiss was not persisted")
	}
}

func TestReset(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	seed(t, stateDir, func(tr *progress.Tracker) {
		tr.SetJobID(7)
		tr.Start()
		tr.Advance(30)
	})

	out, err := execute(t, "reset", "--store", "file://"+stateDir)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Progress reset.\n" {
		t.Errorf("reset = %q", out)
	}
	if got := loadState(t, stateDir); got != progress.Initial() {
		t.Errorf("state after reset = %+v", got)
	}
}

func TestUnknownStoreScheme(t *testing.T) {
	isolate(t)

	if _, err := execute(t, "status", "--store", "ftp://nowhere"); err == nil {
		t.Fatal("expected error for unsupported store")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnnotateText(t *testing.T) {
	dir := isolate(t)
	text := writeFile(t, dir, "text.txt", "Hello, world")
	comments := writeFile(t, dir, "comments.json",
		`[{"commentStartIndex":0,"commentEndIndex":5,"commentContent":"greeting"}]`)

	out, err := execute(t, "annotate", "--text", text, "--comments", comments)
	if err != nil {
		t.Fatal(err)
	}
	want := "[Hello][1], world\n\n  [1] greeting\n"
	if out != want {
		t.Errorf("annotate =\n%q\nwant\n%q", out, want)
	}
}

func TestAnnotateJSON(t *testing.T) {
	dir := isolate(t)
	text := writeFile(t, dir, "text.txt", "ab안녕cd")
	comments := writeFile(t, dir, "comments.json",
		`[{"commentStartIndex":2,"commentEndIndex":4,"commentContent":"hi"}]`)

	out, err := execute(t, "annotate", "--text", text, "--comments", comments, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Segments []struct {
			Text      string               `json:"text"`
			Annotated bool                 `json:"annotated"`
			Comment   *model.CommitComment `json:"comment"`
		} `json:"segments"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(got.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(got.Segments))
	}
	mid := got.Segments[1]
	if mid.Text != "안녕" || !mid.Annotated || mid.Comment == nil || mid.Comment.Content != "hi" {
		t.Errorf("middle segment = %+v", mid)
	}
	if got.Segments[0].Comment != nil {
		t.Error("plain segment should carry no comment")
	}
}

func TestAnnotateStrictRejectsOverlap(t *testing.T) {
	dir := isolate(t)
	text := writeFile(t, dir, "text.txt", "overlapping ranges")
	comments := writeFile(t, dir, "comments.json", `[
		{"commentStartIndex":0,"commentEndIndex":8,"commentContent":"a"},
		{"commentStartIndex":4,"commentEndIndex":12,"commentContent":"b"}
	]`)

	if _, err := execute(t, "annotate", "--text", text, "--comments", comments, "--strict"); err == nil {
		t.Fatal("expected overlap error in strict mode")
	}

	// Lenient mode clips instead.
	out, err := execute(t, "annotate", "--text", text, "--comments", comments, "--format", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "**overlapp**[^1]**ing **[^2]ranges") {
		t.Errorf("markdown = %q", out)
	}
}

func TestAnnotateUnknownFormat(t *testing.T) {
	dir := isolate(t)
	text := writeFile(t, dir, "text.txt", "x")

	if _, err := execute(t, "annotate", "--text", text, "--format", "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func sampleDetail() model.RepoDetail {
	return model.RepoDetail{
		RepoCard: model.RepoCard{MemberNickname: "dev", Title: "My Repo"},
		BasicDetail: model.BasicDetail{
			RepoViewResult: "Commits are small <and> focused.",
			CommentList: []*model.CommitComment{
				{StartIndex: 0, EndIndex: 7, Content: "nice & tidy"},
			},
		},
		CommitScore: &model.CommitScore{Readability: 90, Performance: 70, Reusability: 50,
			Testability: 30, Exception: 60, Total: 62, Comment: "Keep it up"},
	}
}

// fakeBackend serves the analysis endpoints the CLI uses.
func fakeBackend(t *testing.T, detail model.RepoDetail) *httptest.Server {
	t.Helper()
	return fakeBackendWithID(t, "42", detail)
}

// fakeBackendWithID hands out id for new analyses and knows only that one.
func fakeBackendWithID(t *testing.T, id string, detail model.RepoDetail) *httptest.Server {
	t.Helper()
	reply := func(w http.ResponseWriter, result any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(model.BaseResponse[any]{IsSuccess: true, Code: 1000, Message: "ok", Result: result})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/repos/analysis", func(w http.ResponseWriter, r *http.Request) {
		reply(w, id)
	})
	mux.HandleFunc("GET /api/repos/analysis/{id}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, model.AnalysisCheck{AnalysisID: r.PathValue("id"), Percentage: 100})
	})
	mux.HandleFunc("GET /api/repos/analysis/done/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != id {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(model.BaseResponse[any]{Code: 4040, Message: "no such analysis"})
			return
		}
		reply(w, detail)
	})
	mux.HandleFunc("GET /api/repos/{id}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, detail)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzeDetach(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	srv := fakeBackend(t, sampleDetail())

	out, err := execute(t, "analyze", "https://github.com/dev/repo", "--detach",
		"--store", "file://"+stateDir, "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Analysis 42 started for https://github.com/dev/repo\n") {
		t.Errorf("analyze = %q", out)
	}
	got := loadState(t, stateDir)
	if got.Phase != progress.Running || got.JobID != 42 || got.Percent != 0 {
		t.Errorf("state = %+v", got)
	}
}

func TestAnalyzeStatusResultWithUUID(t *testing.T) {
	const uuid = "3f2b1c9e-8a4d-4e21-9c1b-2f6d7e8a9b10"
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	storeFlag := "file://" + stateDir
	srv := fakeBackendWithID(t, uuid, sampleDetail())

	out, err := execute(t, "analyze", "https://github.com/dev/repo", "--detach",
		"--store", storeFlag, "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Analysis "+uuid+" started") {
		t.Errorf("analyze = %q", out)
	}
	if got := loadState(t, stateDir); got.Phase != progress.Running || got.AnalysisID != uuid {
		t.Fatalf("state = %+v", got)
	}

	out, err = execute(t, "status", "--store", storeFlag)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Analysis "+uuid+" running: 0%\n" {
		t.Errorf("status = %q", out)
	}

	seed(t, stateDir, func(tr *progress.Tracker) { tr.Complete() })
	out, err = execute(t, "result", "--format", "text", "--store", storeFlag, "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "My Repo\n") {
		t.Errorf("result = %q", out)
	}
}

func TestAnalyzeFollowPlain(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	srv := fakeBackend(t, sampleDetail())

	out, err := execute(t, "analyze", "https://github.com/dev/repo", "--no-tui",
		"--store", "file://"+stateDir, "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "100% completed") {
		t.Errorf("analyze output = %q", out)
	}
	got := loadState(t, stateDir)
	if got.Phase != progress.Completed || !got.NotificationVisible {
		t.Errorf("state = %+v", got)
	}
}

func TestResultTrackedDismissesNotification(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	seed(t, stateDir, func(tr *progress.Tracker) {
		tr.SetJobID(42)
		tr.Start()
		tr.Complete()
	})
	srv := fakeBackend(t, sampleDetail())

	out, err := execute(t, "result", "--format", "markdown",
		"--store", "file://"+stateDir, "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"## My Repo",
		"**Author:** dev",
		"| Readability | 90 | excellent |",
		"| Testability | 30 | poor |",
		"**Commits**[^1] are small <and> focused.",
		"[^1]: nice & tidy",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if got := loadState(t, stateDir); got.NotificationVisible {
		t.Error("viewing the result should hide the notification")
	}
}

func TestResultRequiresCompletedJob(t *testing.T) {
	dir := isolate(t)
	stateDir := filepath.Join(dir, "state")
	srv := fakeBackend(t, sampleDetail())

	if _, err := execute(t, "result", "--format", "text", "--store", "file://"+stateDir, "--api-url", srv.URL); err == nil {
		t.Fatal("expected error without a tracked analysis")
	}

	seed(t, stateDir, func(tr *progress.Tracker) {
		tr.SetJobID(42)
		tr.Start()
	})
	_, err := execute(t, "result", "--format", "text", "--store", "file://"+stateDir, "--api-url", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "running") {
		t.Fatalf("err = %v, want running error", err)
	}
}

func TestResultByIDNotFound(t *testing.T) {
	isolate(t)
	srv := fakeBackend(t, sampleDetail())

	if _, err := execute(t, "result", "9", "--format", "json", "--store", "mem://", "--api-url", srv.URL); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestViewHTML(t *testing.T) {
	isolate(t)
	srv := fakeBackend(t, sampleDetail())

	out, err := execute(t, "view", "3", "--format", "html", "--api-url", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<title>My Repo</title>",
		`<mark id="span-1" title="nice &amp; tidy">Commits</mark>`,
		"are small &lt;and&gt; focused.",
		`<td class="grade-excellent">excellent</td>`,
		`<li id="note-1">nice &amp; tidy</li>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestViewInvalidID(t *testing.T) {
	isolate(t)

	if _, err := execute(t, "view", "abc", "--format", "text"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestOutputTextWithScore(t *testing.T) {
	var buf bytes.Buffer
	d := sampleDetail()
	if err := writeReport(&buf, "text", newReport(&d)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"My Repo\nby dev\n",
		"[Commits][1] are small <and> focused.\n",
		"  [1] nice & tidy\n",
		"  Total         62  fair\n",
		"Keep it up\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text missing %q:\n%s", want, out)
		}
	}
}

func TestOutputWithoutScore(t *testing.T) {
	d := sampleDetail()
	d.CommitScore = nil
	d.RepoCard.Title = ""

	var buf bytes.Buffer
	if err := writeReport(&buf, "md", newReport(&d)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "## Commit analysis\n") {
		t.Errorf("markdown should fall back to a default title:\n%s", out)
	}
	if strings.Contains(out, "| Category |") {
		t.Error("score table should be omitted without a score")
	}
}
