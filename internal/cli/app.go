package cli

import (
	"context"
	"fmt"

	"projectreview/internal/collector"
	"projectreview/internal/config"
	"projectreview/internal/repo"
	"projectreview/internal/service/ai"
	"projectreview/internal/service/review"
	"projectreview/internal/taskdesc"
)

// newReviewer wires the model gateway, fetcher, extractor and collector from cfg.
func newReviewer(ctx context.Context, cfg *config.Config) (*review.Reviewer, error) {
	chatModel, err := ai.NewChatModel(ctx, cfg.Provider, cfg.ActiveProvider())
	if err != nil {
		return nil, err
	}
	gateway := ai.NewGateway(chatModel)

	fetcher, err := repo.NewFetcher(ctx, repo.Options{
		Token:             cfg.GitHub.Token,
		APIURL:            cfg.GitHub.APIURL,
		WorkDir:           cfg.BasicConfig.WorkDir,
		MaxArchiveBytes:   cfg.GitHub.MaxArchiveBytes,
		MaxExtractedBytes: cfg.GitHub.MaxExtractedBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("init repository fetcher: %w", err)
	}
	coll, err := collector.New(ctx, collector.Options{
		Extensions:    cfg.Collector.Extensions,
		MaxFileBytes:  cfg.Collector.MaxFileBytes,
		RedactSecrets: cfg.Collector.RedactSecrets,
	})
	if err != nil {
		return nil, fmt.Errorf("init file collector: %w", err)
	}

	return review.NewReviewer(fetcher, taskdesc.NewExtractor(gateway), coll, gateway, review.Options{
		KeepWorkDir: cfg.BasicConfig.KeepWorkDir,
	}), nil
}
