// Package taskdesc locates the assignment brief bundled with a student
// repository and pulls the requirements section out of it.
package taskdesc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"projectreview/internal/models"
	"projectreview/internal/notebook"
	"projectreview/internal/repo"
)

var (
	ErrNoTaskDescription = errors.New("no task description file found")

	requirementsHeading = regexp.MustCompile(`(?m)^## Requirements`)
	// any heading of level two or deeper at the start of a line
	sectionHeading = regexp.MustCompile(`(?m)^##`)

	errFound = errors.New("found")
)

// ExtractionError reports a task description that could not be located or read.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("extract task description: %v", e.Err)
	}
	return fmt.Sprintf("extract task description %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Describer condenses a task brief into a project description.
type Describer interface {
	ExtractDescription(ctx context.Context, taskText string) (string, error)
}

// FindTaskFile returns the slash separated path, relative to root, of the first
// file in lexical walk order whose stem is all digits and whose extension is
// .ipynb or .md.
func FindTaskFile(root string) (string, error) {
	var match string
	err := doublestar.GlobWalk(os.DirFS(root), "**/*.{ipynb,md}", func(p string, d fs.DirEntry) error {
		if d.IsDir() || !numericStem(path.Base(p)) {
			return nil
		}
		match = p
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", &ExtractionError{Err: err}
	}
	if match == "" {
		return "", &ExtractionError{Err: ErrNoTaskDescription}
	}
	return match, nil
}

func numericStem(name string) bool {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		return false
	}
	for _, r := range stem {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ReadTaskText returns the markdown cells of a notebook joined in order, or a
// Markdown file verbatim.
func ReadTaskText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", &ExtractionError{Path: filePath, Err: err}
	}
	if strings.EqualFold(filepath.Ext(filePath), notebook.Extension) {
		text, err := notebook.MarkdownText(data)
		if err != nil {
			return "", &ExtractionError{Path: filePath, Err: err}
		}
		return text, nil
	}
	return string(data), nil
}

// ExtractRequirements returns the text from a line starting with
// "## Requirements" up to the next line starting with "##", trimmed.
func ExtractRequirements(text string) string {
	loc := requirementsHeading.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	section := text[loc[0]:]
	nl := strings.IndexByte(section, '\n')
	if nl < 0 {
		return strings.TrimSpace(section)
	}
	if end := sectionHeading.FindStringIndex(section[nl+1:]); end != nil {
		section = section[:nl+1+end[0]]
	}
	return strings.TrimSpace(section)
}

type Extractor struct {
	describer Describer
}

func NewExtractor(d Describer) *Extractor {
	return &Extractor{describer: d}
}

// Extract reads the task brief of snap and removes it from the working copy so
// it is not reviewed as a project file.
func (e *Extractor) Extract(ctx context.Context, snap *repo.Snapshot) (*models.ProjectDescriptor, error) {
	rel, err := FindTaskFile(snap.Root)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(snap.Root, filepath.FromSlash(rel))
	text, err := ReadTaskText(full)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(full); err != nil {
		log.Printf("remove task file %s failed: %v", rel, err)
	}

	description, err := e.describer.ExtractDescription(ctx, text)
	if err != nil {
		return nil, err
	}
	return &models.ProjectDescriptor{
		Branch:           snap.Branch,
		RequirementsText: ExtractRequirements(text),
		DescriptionText:  description,
		WorkDir:          snap.Root,
		TaskFile:         rel,
	}, nil
}
