package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
)

const defaultMaxPlans = 100

var (
	// ErrInvalidParameters indicates the provided planning parameters violate validation rules.
	ErrInvalidParameters = errors.New("invalid planning parameters")
	// ErrPlanNotFound is returned when no plan is stored under the requested id.
	ErrPlanNotFound = errors.New("plan not found")
)

// ParameterStore provides the default planning parameters.
type ParameterStore interface {
	GetParameters() (planner.Params, error)
	SetParameters(params planner.Params) error
}

// PlanStore keeps computed plans for later retrieval.
type PlanStore interface {
	SavePlan(plan cutplan.Plan) error
	GetPlan(id string) (cutplan.Plan, error)
	ListPlans() ([]cutplan.Plan, error)
}

// Storage combines parameter and plan storage.
type Storage interface {
	ParameterStore
	PlanStore
}

// Option configures a MemoryStorage.
type Option func(*MemoryStorage)

// WithMaxPlans bounds the number of retained plans; the oldest are evicted first.
func WithMaxPlans(n int) Option {
	return func(s *MemoryStorage) {
		if n > 0 {
			s.maxPlans = n
		}
	}
}

// MemoryStorage keeps parameters and plans in memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	params   planner.Params
	plans    map[string]cutplan.Plan
	order    []string
	maxPlans int
}

// NewMemoryStorage initialises storage with the default parameters.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		params:   planner.DefaultParams(),
		plans:    make(map[string]cutplan.Plan),
		maxPlans: defaultMaxPlans,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetParameters returns the current default parameters.
func (s *MemoryStorage) GetParameters() (planner.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.params, nil
}

// SetParameters validates and stores new default parameters.
func (s *MemoryStorage) SetParameters(params planner.Params) error {
	if err := planner.ValidateParams(params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}

	s.mu.Lock()
	s.params = params
	s.mu.Unlock()

	return nil
}

// SavePlan stores plan under its id, evicting the oldest plans beyond the limit.
func (s *MemoryStorage) SavePlan(plan cutplan.Plan) error {
	if plan.ID == "" {
		return errors.New("plan id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[plan.ID]; !exists {
		s.order = append(s.order, plan.ID)
	}
	s.plans[plan.ID] = plan

	for len(s.order) > s.maxPlans {
		delete(s.plans, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// GetPlan returns the plan stored under id.
func (s *MemoryStorage) GetPlan(id string) (cutplan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok {
		return cutplan.Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return plan, nil
}

// ListPlans returns the stored plans, newest first.
func (s *MemoryStorage) ListPlans() ([]cutplan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cutplan.Plan, 0, len(s.order))
	for _, id := range slices.Backward(s.order) {
		out = append(out, s.plans[id])
	}
	return out, nil
}
