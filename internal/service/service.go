// Package service runs planning requests end to end: parameter resolution,
// validation, planning, analysis and storage of the resulting plan.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/kerf-planner/internal/cutlist"
	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
	"github.com/eugenenazirov/kerf-planner/internal/storage"
)

var (
	// ErrInvalidRequest is returned when pieces or parameters fail validation.
	ErrInvalidRequest = errors.New("invalid planning request")
	// ErrOversizedPieces is returned when oversized pieces are configured to be rejected.
	ErrOversizedPieces = errors.New("pieces longer than the usable stock length")
)

// Overrides replaces individual stored parameters for one request.
type Overrides struct {
	Limit     *float64 `json:"stockLength,omitempty"`
	Kerf      *float64 `json:"kerf,omitempty"`
	Precision *int     `json:"precision,omitempty"`
}

// Apply returns base with every set override applied.
func (o Overrides) Apply(base planner.Params) planner.Params {
	if o.Limit != nil {
		base.Limit = *o.Limit
	}
	if o.Kerf != nil {
		base.Kerf = *o.Kerf
	}
	if o.Precision != nil {
		base.Precision = *o.Precision
	}
	return base
}

// Request is a single planning request.
type Request struct {
	Name      string
	Pieces    []cutlist.Piece
	Overrides Overrides
	// Warnings raised while reading the cut list, carried into the plan.
	Warnings []string
}

// Service plans cut lists and stores the results.
type Service struct {
	planner         planner.Planner
	store           storage.Storage
	logger          *zap.Logger
	clock           func() time.Time
	rejectOversized bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithRejectOversized makes Plan fail instead of warning about pieces that
// cannot fit on one stock segment.
func WithRejectOversized(reject bool) Option {
	return func(s *Service) {
		s.rejectOversized = reject
	}
}

// New constructs a Service.
func New(p planner.Planner, store storage.Storage, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		planner: p,
		store:   store,
		logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan validates and plans req and stores the resulting plan. A cancelled
// context discards the computation; no partial plan is stored.
func (s *Service) Plan(ctx context.Context, req Request) (cutplan.Plan, error) {
	plan, err := s.compute(ctx, req)
	if err != nil {
		return cutplan.Plan{}, err
	}
	if err := s.save(plan); err != nil {
		return cutplan.Plan{}, err
	}
	return plan, nil
}

// PlanDocuments plans every document concurrently with the same overrides.
// Plans are returned in document order; failures are joined. Nothing is
// stored unless every document plans and ctx is still live.
func (s *Service) PlanDocuments(ctx context.Context, docs []cutlist.Document, overrides Overrides) ([]cutplan.Plan, error) {
	plans := make([]cutplan.Plan, len(docs))
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc cutlist.Document) {
			defer wg.Done()
			plan, err := s.compute(ctx, Request{
				Name:      doc.Name,
				Pieces:    doc.Pieces,
				Overrides: overrides,
				Warnings:  doc.Warnings,
			})
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", doc.Name, err)
				return
			}
			plans[i] = plan
		}(i, doc)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := s.save(plan); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

func (s *Service) compute(ctx context.Context, req Request) (cutplan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return cutplan.Plan{}, err
	}

	defaults, err := s.store.GetParameters()
	if err != nil {
		return cutplan.Plan{}, fmt.Errorf("load parameters: %w", err)
	}
	params := req.Overrides.Apply(defaults)

	doc := cutlist.Document{Pieces: req.Pieces}
	required := doc.Required()
	if err := planner.Validate(required, params); err != nil {
		return cutplan.Plan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	warnings := append([]string(nil), req.Warnings...)
	if oversized := planner.OversizedPieces(required, params); len(oversized) > 0 {
		if s.rejectOversized {
			return cutplan.Plan{}, fmt.Errorf("%w: %s", ErrOversizedPieces, describePieces(req.Pieces, oversized))
		}
		for _, i := range oversized {
			warnings = append(warnings, fmt.Sprintf("piece %s (%g) exceeds usable stock length %g and gets its own segment",
				pieceLabel(req.Pieces, i), req.Pieces[i].Length, params.Limit-params.Kerf))
		}
	}

	start := time.Now()
	groups := s.planner.Plan(required, params)
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return cutplan.Plan{}, err
	}

	plan := cutplan.New(req.Name, req.Pieces, params, groups, s.clock())
	plan.Warnings = warnings

	s.logger.Info("plan computed",
		zap.String("plan_id", plan.ID),
		zap.String("name", plan.Name),
		zap.Int("pieces", len(req.Pieces)),
		zap.Int("segments", plan.Summary.StockUsed),
		zap.Int("oversized", len(plan.Summary.OversizedSegments)),
		zap.Float64("waste", plan.Summary.TotalWaste),
		zap.Duration("duration", elapsed),
	)
	return plan, nil
}

func (s *Service) save(plan cutplan.Plan) error {
	if err := s.store.SavePlan(plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func pieceLabel(pieces []cutlist.Piece, i int) string {
	if pieces[i].Mark != "" {
		return pieces[i].Mark
	}
	return fmt.Sprintf("#%d", i+1)
}

func describePieces(pieces []cutlist.Piece, indices []int) string {
	out := ""
	for n, i := range indices {
		if n > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%g)", pieceLabel(pieces, i), pieces[i].Length)
	}
	return out
}
