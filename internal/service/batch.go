package service

import (
	"context"

	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/sourcegraph/conc/pool"
)

// BatchService recomputes assessments for many clients at once. Every
// item runs against one shared registry snapshot, workers are bounded
// by configuration, and one client's failure is captured in its slot
// without aborting the rest of the batch.
type BatchService interface {
	AssessAll(ctx context.Context, requests []*assessment.AssessmentRequest) ([]*BatchItemResult, error)
}

// BatchItemResult is one client's outcome: exactly one of Result or
// Err is set. Output order matches input order.
type BatchItemResult struct {
	Request *assessment.AssessmentRequest
	Result  *assessment.AssessmentResult
	Err     error
}

type batchService struct {
	ServiceParams
	registry   RateRegistryService
	assessment AssessmentService
}

// NewBatchService creates a new instance of BatchService
func NewBatchService(params ServiceParams) BatchService {
	return &batchService{
		ServiceParams: params,
		registry:      NewRateRegistryService(params),
		assessment:    NewAssessmentService(params),
	}
}

func (s *batchService) AssessAll(ctx context.Context, requests []*assessment.AssessmentRequest) ([]*BatchItemResult, error) {
	// One snapshot for the whole batch so every client is assessed
	// against the same configuration
	snapshot, err := s.registry.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*BatchItemResult, len(requests))

	workers := s.Config.Batch.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i, req := range requests {
		p.Go(func() {
			item := &BatchItemResult{Request: req}
			item.Result, item.Err = s.assessment.AssessWithSnapshot(ctx, req, snapshot)
			if item.Err != nil {
				s.Logger.Warnw("batch assessment item failed",
					"client_id", req.ClientID,
					"tax_type", req.TaxType,
					"error", item.Err,
				)
			}
			results[i] = item
		})
	}
	p.Wait()

	s.Logger.Infow("batch assessment completed",
		"snapshot_version", snapshot.Version(),
		"total", len(requests),
		"failed", countFailures(results),
	)

	return results, nil
}

func countFailures(results []*BatchItemResult) int {
	failed := 0
	for _, r := range results {
		if r != nil && r.Err != nil {
			failed++
		}
	}
	return failed
}
