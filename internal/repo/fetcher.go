package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// Options configures a Fetcher.
type Options struct {
	Token           string
	APIURL          string
	WorkDir         string
	MaxArchiveBytes int64
	// MaxExtractedBytes caps the total size of the unpacked files.
	MaxExtractedBytes int64
	// HTTPClient downloads the archive once the API has resolved its link.
	HTTPClient *http.Client
}

// Snapshot is an unpacked copy of a repository.
type Snapshot struct {
	Owner  string
	Name   string
	Branch string
	// Root is the single top level directory of the archive.
	Root string
	dir  string
}

// Cleanup removes the snapshot directory and everything beneath it.
func (s *Snapshot) Cleanup() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

type Fetcher struct {
	gh       *github.Client
	download *http.Client
	workDir  string
	maxBytes int64
	maxTotal int64
}

func NewFetcher(ctx context.Context, opts Options) (*Fetcher, error) {
	var tc *http.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		tc = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(tc)
	if opts.APIURL != "" {
		base, err := url.Parse(opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		client.BaseURL = base
	}

	download := opts.HTTPClient
	if download == nil {
		download = http.DefaultClient
	}
	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	return &Fetcher{
		gh:       client,
		download: download,
		workDir:  opts.WorkDir,
		maxBytes: opts.MaxArchiveBytes,
		maxTotal: opts.MaxExtractedBytes,
	}, nil
}

// Fetch downloads the zipball of repoURL and unpacks it into a fresh directory.
// An empty branch selects the branch named in the URL, then the repository default.
func (f *Fetcher) Fetch(ctx context.Context, repoURL, branch string) (*Snapshot, error) {
	owner, name, urlBranch, err := ParseURL(repoURL)
	if err != nil {
		return nil, &FetchError{URL: repoURL, Op: "parse url", Err: err}
	}
	if branch == "" {
		branch = urlBranch
	}

	var getOpts *github.RepositoryContentGetOptions
	if branch != "" {
		getOpts = &github.RepositoryContentGetOptions{Ref: branch}
	}
	link, _, err := f.gh.Repositories.GetArchiveLink(ctx, owner, name, github.Zipball, getOpts, 1)
	if err != nil {
		return nil, &FetchError{URL: repoURL, Op: "resolve archive link", Err: err}
	}

	dir, err := os.MkdirTemp(f.workDir, "review-*")
	if err != nil {
		return nil, &FetchError{URL: repoURL, Op: "create snapshot dir", Err: err}
	}
	snap := &Snapshot{Owner: owner, Name: name, Branch: branch, dir: dir}

	archivePath, err := f.downloadArchive(ctx, link.String(), dir)
	if err != nil {
		_ = snap.Cleanup()
		return nil, &FetchError{URL: repoURL, Op: "download archive", Err: err}
	}
	root, err := extractZip(archivePath, filepath.Join(dir, "src"), f.maxTotal)
	if err != nil {
		_ = snap.Cleanup()
		return nil, &FetchError{URL: repoURL, Op: "extract archive", Err: err}
	}
	if err := os.Remove(archivePath); err != nil {
		log.Printf("remove archive %s failed: %v", archivePath, err)
	}
	snap.Root = root
	return snap, nil
}

func (f *Fetcher) downloadArchive(ctx context.Context, link, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.download.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.CreateTemp(dir, "archive-*.zip")
	if err != nil {
		return "", err
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	n, err := io.Copy(out, body)
	if err != nil {
		return "", err
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return "", errors.New("archive exceeds size limit")
	}
	return out.Name(), nil
}
