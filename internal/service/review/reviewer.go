package review

import (
	"context"
	"log"
	"time"

	"projectreview/internal/collector"
	"projectreview/internal/models"
	"projectreview/internal/repo"
)

type Fetcher interface {
	Fetch(ctx context.Context, repoURL, branch string) (*repo.Snapshot, error)
}

type Extractor interface {
	Extract(ctx context.Context, snap *repo.Snapshot) (*models.ProjectDescriptor, error)
}

type Collector interface {
	Collect(ctx context.Context, root, description string, s collector.Summarizer) ([]*models.FileRecord, error)
}

// Gateway is the set of model operations a review needs.
type Gateway interface {
	collector.Summarizer
	RestructureRequirements(ctx context.Context, requirementsText string) (models.Requirements, error)
	ScoreFileQuality(ctx context.Context, path, summary, content string, reqs models.Requirements) (string, error)
	SynthesizeFinalReview(ctx context.Context, feedback models.FileFeedback, reqs models.Requirements, description string) (string, error)
	SelectRelevantFiles(ctx context.Context, files []*models.FileRecord, question string) ([]string, error)
	GenerateFollowUpAnswer(ctx context.Context, files []*models.FileRecord, history []*models.ChatMessage) (string, error)
}

type Options struct {
	// KeepWorkDir leaves the unpacked repository on disk after the run.
	KeepWorkDir bool
}

type Reviewer struct {
	fetcher   Fetcher
	extractor Extractor
	collector Collector
	gateway   Gateway
	opts      Options
}

func NewReviewer(f Fetcher, e Extractor, c Collector, g Gateway, opts Options) *Reviewer {
	return &Reviewer{fetcher: f, extractor: e, collector: c, gateway: g, opts: opts}
}

// Analyze runs a full review of repoURL. Any failing stage aborts the run and
// no partial result is returned.
func (r *Reviewer) Analyze(ctx context.Context, repoURL, branch string) (*Result, error) {
	p := newPipeline(repoURL, branch)
	defer r.release(p)

	started := time.Now()
	if err := r.run(ctx, p); err != nil {
		log.Printf("review of %s ended in stage %s: %v", repoURL, p.Stage(), err)
		return nil, err
	}
	log.Printf("review of %s finished: %d files in %s", repoURL, len(p.files), time.Since(started).Round(time.Millisecond))
	return p.result(), nil
}

func (r *Reviewer) run(ctx context.Context, p *Pipeline) error {
	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageFetched, func() error { return r.fetch(ctx, p) }},
		{StageDescriptionExtracted, func() error { return r.extract(ctx, p) }},
		{StageFilesCollected, func() error { return r.collect(ctx, p) }},
		{StageRequirementsStructured, func() error { return r.structure(ctx, p) }},
		{StageFilesScored, func() error { return r.score(ctx, p) }},
		{StageFinalFeedbackSynthesized, func() error { return r.synthesize(ctx, p) }},
	}
	for _, s := range steps {
		if err := p.advance(s.stage, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reviewer) fetch(ctx context.Context, p *Pipeline) error {
	snap, err := r.fetcher.Fetch(ctx, p.RepoURL, p.Branch)
	if err != nil {
		return err
	}
	p.snapshot = snap
	return nil
}

func (r *Reviewer) extract(ctx context.Context, p *Pipeline) error {
	project, err := r.extractor.Extract(ctx, p.snapshot)
	if err != nil {
		return err
	}
	project.SourceURL = p.RepoURL
	p.project = project
	return nil
}

func (r *Reviewer) collect(ctx context.Context, p *Pipeline) error {
	files, err := r.collector.Collect(ctx, p.project.WorkDir, p.project.DescriptionText, r.gateway)
	if err != nil {
		return err
	}
	p.files = files
	return nil
}

func (r *Reviewer) structure(ctx context.Context, p *Pipeline) error {
	reqs, err := r.gateway.RestructureRequirements(ctx, p.project.RequirementsText)
	if err != nil {
		return err
	}
	p.reqs = reqs
	return nil
}

func (r *Reviewer) score(ctx context.Context, p *Pipeline) error {
	feedback := make(models.FileFeedback, 0, len(p.files))
	for _, f := range p.files {
		critique, err := r.gateway.ScoreFileQuality(ctx, f.Path, f.Summary, f.Content, p.reqs)
		if err != nil {
			return err
		}
		feedback = append(feedback, models.FileFeedbackEntry{Path: f.Path, Feedback: critique})
	}
	p.feedback = feedback
	return nil
}

func (r *Reviewer) synthesize(ctx context.Context, p *Pipeline) error {
	final, err := r.gateway.SynthesizeFinalReview(ctx, p.feedback, p.reqs, p.project.DescriptionText)
	if err != nil {
		return err
	}
	p.final = final
	return nil
}

func (r *Reviewer) release(p *Pipeline) {
	if p.snapshot == nil {
		return
	}
	if r.opts.KeepWorkDir {
		if err := p.Err(); err != nil {
			log.Printf("keeping work dir %s of failed review: %v", p.snapshot.Root, err)
		}
		return
	}
	if err := p.snapshot.Cleanup(); err != nil {
		log.Printf("remove work dir of %s failed: %v", p.RepoURL, err)
	}
}

// NewSession turns a completed review into a chat session whose history opens
// with the final review.
func NewSession(id string, res *Result) *models.ReviewSession {
	now := time.Now()
	return &models.ReviewSession{
		ID:            id,
		Project:       res.Project,
		Files:         res.Files,
		Requirements:  res.Requirements,
		FinalFeedback: res.FinalFeedback,
		History: []*models.ChatMessage{
			{Role: models.RoleAssistant, Content: res.FinalFeedback, CreatedAt: now},
		},
		CreatedAt: now,
	}
}
