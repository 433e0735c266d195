// Package review orchestrates a project review from repository download to
// the final Markdown report, and answers follow-up questions about it.
package review

import (
	"fmt"

	"projectreview/internal/models"
	"projectreview/internal/repo"
)

// Stage is a step of the review pipeline. Stages are only ever entered in order.
type Stage int

const (
	StagePending Stage = iota
	StageFetched
	StageDescriptionExtracted
	StageFilesCollected
	StageRequirementsStructured
	StageFilesScored
	StageFinalFeedbackSynthesized
	StageFailed
)

var stageNames = map[Stage]string{
	StagePending:                  "pending",
	StageFetched:                  "fetched",
	StageDescriptionExtracted:     "description_extracted",
	StageFilesCollected:           "files_collected",
	StageRequirementsStructured:   "requirements_structured",
	StageFilesScored:              "files_scored",
	StageFinalFeedbackSynthesized: "final_feedback_synthesized",
	StageFailed:                   "failed",
}

// stepNames describe the work done to reach a stage.
var stepNames = map[Stage]string{
	StageFetched:                  "fetch repository",
	StageDescriptionExtracted:     "extract task description",
	StageFilesCollected:           "collect files",
	StageRequirementsStructured:   "structure requirements",
	StageFilesScored:              "score files",
	StageFinalFeedbackSynthesized: "synthesize review",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError reports the stage the pipeline failed to reach.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", stepNames[e.Stage], e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline is the state of one analysis run.
type Pipeline struct {
	RepoURL string
	Branch  string

	stage  Stage
	failed *StageError

	snapshot *repo.Snapshot
	project  *models.ProjectDescriptor
	files    []*models.FileRecord
	reqs     models.Requirements
	feedback models.FileFeedback
	final    string
}

func newPipeline(repoURL, branch string) *Pipeline {
	return &Pipeline{RepoURL: repoURL, Branch: branch, stage: StagePending}
}

func (p *Pipeline) Stage() Stage { return p.stage }

// Err returns the failure that moved the pipeline to StageFailed.
func (p *Pipeline) Err() error {
	if p.failed == nil {
		return nil
	}
	return p.failed
}

// advance runs step and moves to next on success, or to StageFailed otherwise.
func (p *Pipeline) advance(next Stage, step func() error) error {
	if p.stage == StageFailed {
		return p.failed
	}
	if next != p.stage+1 {
		return fmt.Errorf("invalid stage transition %s -> %s", p.stage, next)
	}
	if err := step(); err != nil {
		p.failed = &StageError{Stage: next, Err: err}
		p.stage = StageFailed
		return p.failed
	}
	p.stage = next
	return nil
}

// Result is the outcome of a completed pipeline.
type Result struct {
	Project       *models.ProjectDescriptor
	Files         []*models.FileRecord
	Requirements  models.Requirements
	Feedback      models.FileFeedback
	FinalFeedback string
}

func (p *Pipeline) result() *Result {
	return &Result{
		Project:       p.project,
		Files:         p.files,
		Requirements:  p.reqs,
		Feedback:      p.feedback,
		FinalFeedback: p.final,
	}
}
