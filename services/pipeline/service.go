// Package pipeline answers a tenant's question from retrieved evidence: it
// retrieves, assembles context, generates once and filters sources by citation.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-rag/services"
	"github.com/upb/catalog-rag/services/citation"
	"github.com/upb/catalog-rag/services/intent"
	"github.com/upb/catalog-rag/services/prompt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service runs the retrieval and synthesis pipeline
type Service struct {
	searcher  Searcher
	generator Generator
	config    Config
	logger    *zap.Logger
}

// NewService creates a pipeline service
func NewService(searcher Searcher, generator Generator, config Config, logger *zap.Logger) (*Service, error) {
	if searcher == nil {
		return nil, errors.New("pipeline: searcher must not be nil")
	}
	if generator == nil {
		return nil, errors.New("pipeline: generator must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultConfig()
	if config.TextTopK <= 0 {
		config.TextTopK = defaults.TextTopK
	}
	if config.ImageTopK <= 0 {
		config.ImageTopK = defaults.ImageTopK
	}

	return &Service{
		searcher:  searcher,
		generator: generator,
		config:    config,
		logger:    logger,
	}, nil
}

// Run answers query for tenantID. A missing tenant or query yields a user-facing
// answer rather than an error. Retrieval and generation failures are returned as
// domain errors and no partial result is produced.
func (s *Service) Run(ctx context.Context, query, tenantID string) (*Result, error) {
	run := &runContext{
		RunID:     uuid.New(),
		TenantID:  tenantID,
		Query:     strings.TrimSpace(query),
		StartTime: time.Now(),
	}

	if run.TenantID == "" {
		s.logger.Warn("rag query rejected: missing tenant", zap.String("run_id", run.RunID.String()))
		return newResult(run.RunID, OutcomeInvalid, MissingTenantAnswer, nil, nil), nil
	}
	if run.Query == "" {
		s.logger.Warn("rag query rejected: missing query",
			zap.String("run_id", run.RunID.String()),
			zap.String("tenant_id", tenantID))
		return newResult(run.RunID, OutcomeInvalid, MissingQueryAnswer, nil, nil), nil
	}

	s.logger.Info("starting rag pipeline",
		zap.String("run_id", run.RunID.String()),
		zap.String("tenant_id", tenantID))

	// Step 1: Classify intent
	run.Visual = intent.IsVisual(run.Query)
	s.logger.Debug("step 1: classified intent",
		zap.String("run_id", run.RunID.String()),
		zap.Bool("visual", run.Visual))

	// Step 2: Retrieve text and images
	s.logger.Debug("step 2: retrieving evidence", zap.String("run_id", run.RunID.String()))
	if err := s.retrieve(ctx, run); err != nil {
		s.logger.Error("retrieval failed",
			zap.String("run_id", run.RunID.String()),
			zap.Error(err))
		return nil, err
	}

	// Step 3: Short-circuit when there is nothing to generate from
	if len(run.TextResults) == 0 {
		if len(run.ImageResults) == 0 {
			s.complete(run, OutcomeNoEvidence, 0)
			return newResult(run.RunID, OutcomeNoEvidence, NoEvidenceAnswer, nil, nil), nil
		}
		s.complete(run, OutcomeImageOnly, 0)
		return newResult(run.RunID, OutcomeImageOnly, ImageOnlyAnswer, nil, run.ImageResults), nil
	}

	// Step 4: Build context and generate
	s.logger.Debug("step 4: generating answer",
		zap.String("run_id", run.RunID.String()),
		zap.Int("text_results", len(run.TextResults)),
		zap.Int("image_results", len(run.ImageResults)))

	contextText := prompt.BuildContext(run.TextResults, run.ImageResults)
	answer, err := s.generator.Generate(ctx, prompt.Messages(contextText, run.Query), s.config.Temperature)
	if err != nil {
		s.logger.Error("generation failed",
			zap.String("run_id", run.RunID.String()),
			zap.Error(err))
		return nil, services.WrapGenerationFailed("text generation failed", err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, services.WrapGenerationFailed("text generation failed", services.ErrMalformedResponse)
	}

	// Step 5: Keep only cited text sources
	textSources := citation.Filter(answer, run.TextResults)
	s.logger.Debug("step 5: filtered sources by citation",
		zap.String("run_id", run.RunID.String()),
		zap.Int("retrieved", len(run.TextResults)),
		zap.Int("kept", len(textSources)))

	s.complete(run, OutcomeGenerated, len(textSources))
	return newResult(run.RunID, OutcomeGenerated, answer, textSources, run.ImageResults), nil
}

// retrieve runs text search and, for visual queries, image search concurrently.
// Both must finish before context assembly; the first failure fails the run.
func (s *Service) retrieve(ctx context.Context, run *runContext) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := s.searcher.SearchText(gctx, run.Query, run.TenantID, s.config.TextTopK)
		if err != nil {
			return err
		}
		run.TextResults = results
		return nil
	})

	if run.Visual {
		g.Go(func() error {
			results, err := s.searcher.SearchImages(gctx, run.Query, run.TenantID, s.config.ImageTopK)
			if err != nil {
				return err
			}
			run.ImageResults = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if services.GetErrorType(err) == "" {
			return services.WrapRetrievalUnavailable("retrieval failed", err)
		}
		return err
	}
	return nil
}

func (s *Service) complete(run *runContext, outcome Outcome, textSources int) {
	s.logger.Info("rag pipeline completed",
		zap.String("run_id", run.RunID.String()),
		zap.String("tenant_id", run.TenantID),
		zap.String("outcome", string(outcome)),
		zap.Int("text_sources", textSources),
		zap.Int("image_sources", len(run.ImageResults)),
		zap.Int64("latency_ms", time.Since(run.StartTime).Milliseconds()))
}

