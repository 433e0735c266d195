package review

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"projectreview/internal/collector"
	"projectreview/internal/config"
	"projectreview/internal/models"
	"projectreview/internal/repo"
	"projectreview/internal/taskdesc"
)

type fakeGateway struct {
	mu        sync.Mutex
	failOn    string
	selected  []string
	answer    string
	summaries []string
	scored    []string
	reqText   string
	history   []*models.ChatMessage
	answerFor []*models.FileRecord
}

var errFake = errors.New("model unavailable")

func (f *fakeGateway) fail(op string) error {
	if f.failOn == op {
		return errFake
	}
	return nil
}

func (f *fakeGateway) ExtractDescription(context.Context, string) (string, error) {
	return "A todo application.", f.fail("describe")
}

func (f *fakeGateway) SummarizeFile(_ context.Context, path, _, _ string) (string, error) {
	f.mu.Lock()
	f.summaries = append(f.summaries, path)
	f.mu.Unlock()
	return "summary of " + path, f.fail("summarize")
}

func (f *fakeGateway) RestructureRequirements(_ context.Context, text string) (models.Requirements, error) {
	f.reqText = text
	if err := f.fail("structure"); err != nil {
		return nil, err
	}
	return models.Requirements{"Add a form to create tasks"}, nil
}

func (f *fakeGateway) ScoreFileQuality(_ context.Context, path, _, _ string, _ models.Requirements) (string, error) {
	f.scored = append(f.scored, path)
	return "feedback for " + path, f.fail("score")
}

func (f *fakeGateway) SynthesizeFinalReview(_ context.Context, fb models.FileFeedback, _ models.Requirements, _ string) (string, error) {
	if err := f.fail("synthesize"); err != nil {
		return "", err
	}
	paths := make([]string, 0, len(fb))
	for _, e := range fb {
		paths = append(paths, e.Path)
	}
	return "# Review\n" + strings.Join(paths, "\n"), nil
}

func (f *fakeGateway) SelectRelevantFiles(context.Context, []*models.FileRecord, string) ([]string, error) {
	return f.selected, f.fail("select")
}

func (f *fakeGateway) GenerateFollowUpAnswer(_ context.Context, files []*models.FileRecord, history []*models.ChatMessage) (string, error) {
	f.answerFor = files
	f.history = history
	if err := f.fail("answer"); err != nil {
		return "", err
	}
	return f.answer, nil
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

var todoApp = map[string]string{
	"acme-todo-app-1a2b3c/123.md":         "## Requirements\nUser can add a task\n## Grading",
	"acme-todo-app-1a2b3c/app.py":         "tasks = []\n",
	"acme-todo-app-1a2b3c/schema.sql":     "CREATE TABLE tasks (id INTEGER);",
	"acme-todo-app-1a2b3c/README.md":      "# Todo app",
	"acme-todo-app-1a2b3c/docs/notes.txt": "ideas",
	"acme-todo-app-1a2b3c/analysis.ipynb": `{"cells": [{"cell_type": "code", "execution_count": 1, "outputs": [], "source": ["len(tasks)"]}]}`,
	"acme-todo-app-1a2b3c/logo.png":       "png",
}

// newTodoReviewer wires the real fetcher, extractor and collector against a
// GitHub stub serving the todo app archive.
func newTodoReviewer(t *testing.T, gw *fakeGateway, keep bool) (*Reviewer, string) {
	t.Helper()
	archive := buildZip(t, todoApp)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/todo-app/zipball":
			w.Header().Set("Location", srv.URL+"/archive.zip")
			w.WriteHeader(http.StatusFound)
		case "/archive.zip":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	workDir := t.TempDir()
	fetcher, err := repo.NewFetcher(context.Background(), repo.Options{APIURL: srv.URL, WorkDir: workDir})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	coll, err := collector.New(context.Background(), collector.Options{Extensions: config.DefaultExtensions})
	if err != nil {
		t.Fatalf("collector.New: %v", err)
	}
	return NewReviewer(fetcher, taskdesc.NewExtractor(gw), coll, gw, Options{KeepWorkDir: keep}), workDir
}

func TestAnalyzeTodoApp(t *testing.T) {
	gw := &fakeGateway{}
	reviewer, workDir := newTodoReviewer(t, gw, false)

	res, err := reviewer.Analyze(context.Background(), "https://github.com/acme/todo-app", "")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Project.RequirementsText != "## Requirements\nUser can add a task" {
		t.Fatalf("unexpected requirements text %q", res.Project.RequirementsText)
	}
	if gw.reqText != res.Project.RequirementsText {
		t.Fatalf("requirements text not passed to the model: %q", gw.reqText)
	}
	if res.Project.SourceURL != "https://github.com/acme/todo-app" || res.Project.TaskFile != "123.md" {
		t.Fatalf("unexpected project %+v", res.Project)
	}

	var paths []string
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	want := []string{"README.md", "analysis.ipynb", "app.py", "docs/notes.txt", "schema.sql"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected files %v", paths)
	}
	if len(res.Feedback) != len(res.Files) || len(gw.scored) != len(res.Files) {
		t.Fatalf("expected one feedback entry per file, got %d", len(res.Feedback))
	}
	for i, entry := range res.Feedback {
		if entry.Path != res.Files[i].Path || entry.Feedback != "feedback for "+entry.Path {
			t.Fatalf("feedback out of collection order at %d", i)
		}
	}
	if !strings.HasPrefix(res.FinalFeedback, "# Review") {
		t.Fatalf("unexpected final feedback %q", res.FinalFeedback)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned up: %d entries", len(entries))
	}
}

func TestAnalyzeStopsAtFailingStage(t *testing.T) {
	cases := map[string]Stage{
		"describe":   StageDescriptionExtracted,
		"summarize":  StageFilesCollected,
		"structure":  StageRequirementsStructured,
		"score":      StageFilesScored,
		"synthesize": StageFinalFeedbackSynthesized,
	}
	for op, stage := range cases {
		gw := &fakeGateway{failOn: op}
		reviewer, _ := newTodoReviewer(t, gw, false)
		res, err := reviewer.Analyze(context.Background(), "https://github.com/acme/todo-app", "")
		if res != nil {
			t.Fatalf("%s: partial result returned", op)
		}
		var se *StageError
		if !errors.As(err, &se) || se.Stage != stage || !errors.Is(err, errFake) {
			t.Fatalf("%s: expected StageError at %s, got %v", op, stage, err)
		}
	}
}

func TestAnalyzeFetchFailure(t *testing.T) {
	reviewer, _ := newTodoReviewer(t, &fakeGateway{}, false)
	_, err := reviewer.Analyze(context.Background(), "https://github.com/acme/missing", "")
	var se *StageError
	var fe *repo.FetchError
	if !errors.As(err, &se) || se.Stage != StageFetched || !errors.As(err, &fe) {
		t.Fatalf("expected fetch StageError, got %v", err)
	}
}

func TestPipelineTransitions(t *testing.T) {
	p := newPipeline("u", "")
	if err := p.advance(StageDescriptionExtracted, func() error { return nil }); err == nil {
		t.Fatalf("expected skipped stage to be rejected")
	}
	if err := p.advance(StageFetched, func() error { return nil }); err != nil || p.Stage() != StageFetched {
		t.Fatalf("advance to fetched: %v (%s)", err, p.Stage())
	}
	if err := p.advance(StageDescriptionExtracted, func() error { return errFake }); err == nil || p.Stage() != StageFailed {
		t.Fatalf("expected failed stage, got %s", p.Stage())
	}
	if err := p.advance(StageFilesCollected, func() error { t.Fatalf("step ran after failure"); return nil }); !errors.Is(err, errFake) {
		t.Fatalf("expected wrapped model failure, got %v", err)
	}
	if !errors.Is(p.Err(), errFake) {
		t.Fatalf("Err() lost the failure")
	}
}

func TestFollowUp(t *testing.T) {
	gw := &fakeGateway{selected: []string{"app.py"}, answer: "Tasks live in a list."}
	reviewer := NewReviewer(nil, nil, nil, gw, Options{})
	sess := NewSession("s1", &Result{
		Files:         []*models.FileRecord{{Path: "app.py", Content: "tasks = []"}, {Path: "README.md"}},
		FinalFeedback: "# Review",
	})

	answer, err := reviewer.FollowUp(context.Background(), sess, "Where are tasks stored?")
	if err != nil {
		t.Fatalf("FollowUp error: %v", err)
	}
	if answer != "Tasks live in a list." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(gw.answerFor) != 1 || gw.answerFor[0].Path != "app.py" {
		t.Fatalf("unexpected files passed to the model %+v", gw.answerFor)
	}
	if len(gw.history) != 2 || gw.history[0].Content != "# Review" || gw.history[1].Content != "Where are tasks stored?" {
		t.Fatalf("unexpected history sent to the model")
	}
	if len(sess.History) != 3 || sess.History[2].Role != models.RoleAssistant {
		t.Fatalf("history not appended: %d turns", len(sess.History))
	}
}

func TestFollowUpFailureLeavesHistory(t *testing.T) {
	gw := &fakeGateway{failOn: "answer"}
	reviewer := NewReviewer(nil, nil, nil, gw, Options{})
	sess := NewSession("s1", &Result{FinalFeedback: "# Review"})

	if _, err := reviewer.FollowUp(context.Background(), sess, "?"); !errors.Is(err, errFake) {
		t.Fatalf("expected model error, got %v", err)
	}
	if len(sess.History) != 1 {
		t.Fatalf("failed turn changed history: %d turns", len(sess.History))
	}
}
