package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
)

func TestNewMemoryStorageReturnsDefaultParameters(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()

	got, err := store.GetParameters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := planner.DefaultParams(); got != want {
		t.Fatalf("expected default parameters %+v, got %+v", want, got)
	}
}

func TestSetParametersUpdatesState(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	want := planner.Params{Limit: 3000, Kerf: 2.5, Precision: 2}
	if err := store.SetParameters(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetParameters()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSetParametersRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	testCases := []planner.Params{
		{Limit: 0, Precision: 1},
		{Limit: -10, Precision: 1},
		{Limit: 100, Kerf: -1, Precision: 1},
		{Limit: 100, Precision: 7},
	}

	for idx, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			store := NewMemoryStorage()
			if err := store.SetParameters(tc); !errors.Is(err, ErrInvalidParameters) {
				t.Fatalf("expected ErrInvalidParameters for %+v, got %v", tc, err)
			}
			if got, _ := store.GetParameters(); got != planner.DefaultParams() {
				t.Fatalf("expected parameters to be unchanged, got %+v", got)
			}
		})
	}
}

func TestPlanStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage(WithMaxPlans(2))
	for _, id := range []string{"a", "b", "c"} {
		if err := store.SavePlan(cutplan.Plan{ID: id}); err != nil {
			t.Fatalf("SavePlan(%s) failed: %v", id, err)
		}
	}

	if _, err := store.GetPlan("a"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected oldest plan to be evicted, got %v", err)
	}
	plan, err := store.GetPlan("c")
	if err != nil || plan.ID != "c" {
		t.Fatalf("expected plan c, got %+v (%v)", plan, err)
	}

	plans, err := store.ListPlans()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 || plans[0].ID != "c" || plans[1].ID != "b" {
		t.Fatalf("expected newest first [c b], got %+v", plans)
	}

	if err := store.SavePlan(cutplan.Plan{}); err == nil {
		t.Fatalf("expected error for plan without id")
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(3)

		go func(offset int) {
			defer wg.Done()
			params := planner.Params{Limit: float64(1000 + offset), Kerf: 1, Precision: 1}
			if err := store.SetParameters(params); err != nil {
				t.Errorf("SetParameters failed: %v", err)
			}
		}(i)

		go func(offset int) {
			defer wg.Done()
			if err := store.SavePlan(cutplan.Plan{ID: fmt.Sprintf("plan-%d", offset)}); err != nil {
				t.Errorf("SavePlan failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, err := store.GetParameters(); err != nil {
				t.Errorf("GetParameters failed: %v", err)
			}
			if _, err := store.ListPlans(); err != nil {
				t.Errorf("ListPlans failed: %v", err)
			}
		}()
	}

	wg.Wait()

	plans, err := store.ListPlans()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 32 {
		t.Fatalf("expected 32 plans, got %d", len(plans))
	}
}
