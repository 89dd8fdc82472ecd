package renderer

import (
	"context"
	"fmt"

	"github.com/dvloznov/walletflow/internal/gcs"
	"github.com/dvloznov/walletflow/internal/jobs"
	"github.com/dvloznov/walletflow/internal/logger"
	"github.com/dvloznov/walletflow/internal/pipeline"
)

// JobOptions converts the options stored on a job into pipeline options.
// An empty period keeps the service default.
func JobOptions(o jobs.RenderOptions) (pipeline.Options, error) {
	opts := pipeline.Options{
		Offset:    o.Offset,
		ShowNotes: o.ShowNotes,
	}
	if o.AggregatePeriod != "" {
		period, err := pipeline.ParsePeriod(o.AggregatePeriod)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("JobOptions: %w", err)
		}
		opts.AggregatePeriod = period
	}
	return opts, nil
}

// JobProcessor executes render jobs: load the source, render, upload.
type JobProcessor struct {
	service *Service
	sources *Sources
	// bucket receives diagrams of jobs without an OutputURI. Empty skips
	// the upload.
	bucket string
}

// NewJobProcessor creates a processor for render jobs.
func NewJobProcessor(service *Service, sources *Sources, bucket string) *JobProcessor {
	return &JobProcessor{
		service: service,
		sources: sources,
		bucket:  bucket,
	}
}

// Handle implements jobs.JobHandler. On success job.Result is filled in;
// the queue persists it.
func (p *JobProcessor) Handle(ctx context.Context, job jobs.Job) error {
	renderJob, ok := job.(*jobs.RenderDiagramJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type: %T", job)
	}

	log := logger.FromContext(ctx).With().
		Str("job_id", renderJob.JobID).
		Str("source_uri", renderJob.SourceURI).
		Int("attempt", renderJob.RetryCount+1).
		Logger()
	ctx = logger.WithContext(ctx, log)

	log.Info().Msg("Processing render job")

	opts, err := JobOptions(renderJob.Options)
	if err != nil {
		return fmt.Errorf("Handle: %w", err)
	}

	records, err := p.sources.Load(ctx, renderJob.SourceURI)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load source")
		return fmt.Errorf("Handle: %w", err)
	}

	result, err := p.service.Render(ctx, Request{
		Records:    records,
		Options:    opts,
		Currencies: renderJob.Options.Currencies,
	})
	if err != nil {
		return fmt.Errorf("Handle: %w", err)
	}

	outputURI := renderJob.OutputURI
	if outputURI == "" && p.bucket != "" {
		outputURI = gcs.DiagramURI(p.bucket, renderJob.JobID)
	}
	if outputURI != "" {
		if p.sources.Storage == nil {
			return fmt.Errorf("Handle: upload %s: %w", outputURI, ErrSourceUnavailable)
		}
		if err := p.sources.Storage.UploadBytes(ctx, outputURI, []byte(result.Diagram), gcs.DiagramContentType); err != nil {
			log.Error().Err(err).Str("output_uri", outputURI).Msg("Failed to upload diagram")
			return fmt.Errorf("Handle: %w", err)
		}
	}

	renderJob.Result = &jobs.RenderResult{
		LiveURL:      result.LiveURL,
		OutputURI:    outputURI,
		Records:      len(records),
		Participants: len(result.Participants),
		Periods:      len(result.Periods),
	}

	log.Info().
		Str("output_uri", outputURI).
		Int("records", len(records)).
		Bool("cached", result.Cached).
		Msg("Render job completed")
	return nil
}
