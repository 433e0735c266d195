package repo

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

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

// newGitHubStub serves the archive link redirect and the archive itself.
func newGitHubStub(t *testing.T, archive []byte, seenAuth *string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/todo-app/zipball", "/repos/acme/todo-app/zipball/main":
			if seenAuth != nil {
				*seenAuth = r.Header.Get("Authorization")
			}
			w.Header().Set("Location", srv.URL+"/codeload/todo-app.zip")
			w.WriteHeader(http.StatusFound)
		case "/codeload/todo-app.zip":
			w.Header().Set("Content-Type", "application/zip")
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, srv *httptest.Server, token string, maxBytes int64) *Fetcher {
	t.Helper()
	f, err := NewFetcher(context.Background(), Options{
		Token:           token,
		APIURL:          srv.URL,
		WorkDir:         t.TempDir(),
		MaxArchiveBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("NewFetcher error: %v", err)
	}
	return f
}

func TestFetchExtractsSingleRoot(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"acme-todo-app-abc123/README.md":    "# Todo",
		"acme-todo-app-abc123/app/main.py":  "print('todo')",
		"acme-todo-app-abc123/123.md":       "## Requirements\nUser can add a task",
		"__MACOSX/acme-todo-app-abc123/._x": "junk",
	})
	var auth string
	srv := newGitHubStub(t, archive, &auth)
	f := newTestFetcher(t, srv, "secret-token", 0)

	snap, err := f.Fetch(context.Background(), "https://github.com/acme/todo-app", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if filepath.Base(snap.Root) != "acme-todo-app-abc123" {
		t.Fatalf("unexpected root %s", snap.Root)
	}
	data, err := os.ReadFile(filepath.Join(snap.Root, "app", "main.py"))
	if err != nil || string(data) != "print('todo')" {
		t.Fatalf("extracted file mismatch: %q %v", data, err)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("expected bearer auth on api call, got %q", auth)
	}
	if err := snap.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(snap.Root); !os.IsNotExist(err) {
		t.Fatalf("expected snapshot removed, stat err %v", err)
	}
}

func TestFetchUsesBranch(t *testing.T) {
	archive := buildZip(t, map[string]string{"root/a.py": "x = 1"})
	srv := newGitHubStub(t, archive, nil)
	f := newTestFetcher(t, srv, "", 0)

	snap, err := f.Fetch(context.Background(), "github.com/acme/todo-app/tree/main", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer snap.Cleanup()
	if snap.Branch != "main" {
		t.Fatalf("expected branch from url, got %q", snap.Branch)
	}
}

func TestFetchErrors(t *testing.T) {
	multiRoot := buildZip(t, map[string]string{"one/a.py": "", "two/b.py": ""})
	srv := newGitHubStub(t, multiRoot, nil)

	cases := map[string]struct {
		url      string
		maxBytes int64
	}{
		"not github":   {url: "https://example.com/acme/todo-app"},
		"missing repo": {url: "https://github.com/acme/other"},
		"bad layout":   {url: "https://github.com/acme/todo-app"},
		"too large":    {url: "https://github.com/acme/todo-app", maxBytes: 10},
	}
	for name, tc := range cases {
		f := newTestFetcher(t, srv, "", tc.maxBytes)
		_, err := f.Fetch(context.Background(), tc.url, "")
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected FetchError, got %v", name, err)
		}
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(src, buildZip(t, map[string]string{"../escape.txt": "x"}), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	if _, err := extractZip(src, filepath.Join(dir, "out"), 0); err == nil {
		t.Fatalf("expected traversal entry to be rejected")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("file escaped destination")
	}
}

func TestExtractZipEnforcesExtractedLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bomb.zip")
	archive := buildZip(t, map[string]string{
		"acme-todo-app-abc123/a.txt": strings.Repeat("a", 600),
		"acme-todo-app-abc123/b.txt": strings.Repeat("b", 600),
	})
	if err := os.WriteFile(src, archive, 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	if _, err := extractZip(src, filepath.Join(dir, "small"), 1000); !errors.Is(err, ErrExtractedTooLarge) {
		t.Fatalf("expected ErrExtractedTooLarge, got %v", err)
	}
	root, err := extractZip(src, filepath.Join(dir, "big"), 1200)
	if err != nil {
		t.Fatalf("extract within limit: %v", err)
	}
	if filepath.Base(root) != "acme-todo-app-abc123" {
		t.Fatalf("unexpected root %s", root)
	}
}
