package planner

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"
)

func TestPlanScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pieces []RequiredPiece
		params Params
		want   []Group
	}{
		{
			name: "MixedLengthsWithKerf",
			pieces: []RequiredPiece{
				{Length: 6.5, Quantity: 1},
				{Length: 40, Quantity: 1},
				{Length: 50, Quantity: 2},
				{Length: 10, Quantity: 6},
				{Length: 9, Quantity: 2},
				{Length: 0.5, Quantity: 1},
			},
			params: Params{Limit: 100, Kerf: 1, Precision: 1},
			want: []Group{
				{{2, 50}, {1, 40}, {0, 6.5}},
				{{2, 50}, {3, 10}, {3, 10}, {3, 10}, {3, 10}, {5, 0.5}},
				{{3, 10}, {3, 10}, {4, 9}, {4, 9}},
			},
		},
		{
			name:   "OversizedSinglePiece",
			pieces: []RequiredPiece{{Length: 150, Quantity: 1}},
			params: Params{Limit: 100, Kerf: 1, Precision: 1},
			want:   []Group{{{0, 150}}},
		},
		{
			name:   "NoPieces",
			pieces: []RequiredPiece{},
			params: Params{Limit: 100, Kerf: 1, Precision: 1},
			want:   []Group{},
		},
		{
			name:   "NoKerfFillsExactly",
			pieces: []RequiredPiece{{Length: 6, Quantity: 1}, {Length: 4, Quantity: 1}},
			params: Params{Limit: 10, Kerf: 0, Precision: 1},
			want:   []Group{{{0, 6}, {1, 4}}},
		},
		{
			name:   "DuplicateUnitsAreAllPlaced",
			pieces: []RequiredPiece{{Length: 5, Quantity: 3}},
			params: Params{Limit: 10, Kerf: 0, Precision: 1},
			want:   []Group{{{0, 5}, {0, 5}}, {{0, 5}}},
		},
		{
			name:   "OversizedPieceClosedBeforeOthers",
			pieces: []RequiredPiece{{Length: 30, Quantity: 2}, {Length: 120, Quantity: 1}},
			params: Params{Limit: 100, Kerf: 2, Precision: 0},
			want:   []Group{{{1, 120}}, {{0, 30}, {0, 30}}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := New().Plan(tc.pieces, tc.params)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected groups:\n got %v\nwant %v", got, tc.want)
			}
		})
	}
}

func TestPlanFirstGroupSeededWithLongestUnit(t *testing.T) {
	t.Parallel()

	pieces := []RequiredPiece{
		{Length: 6.5, Quantity: 1},
		{Length: 40, Quantity: 1},
		{Length: 50, Quantity: 2},
		{Length: 10, Quantity: 6},
		{Length: 9, Quantity: 2},
		{Length: 0.5, Quantity: 1},
	}
	params := Params{Limit: 100, Kerf: 1, Precision: 1}

	groups := New().Plan(pieces, params)
	if len(groups) == 0 || groups[0][0].Length != 50 {
		t.Fatalf("expected first group to start with a 50 unit, got %v", groups)
	}

	units := 0
	for _, g := range groups {
		units += len(g)
		if used := g.Sum() + params.Kerf*float64(len(g)); used > params.Limit {
			t.Fatalf("group %v uses %v of %v", g, used, params.Limit)
		}
	}
	if units != 13 {
		t.Fatalf("expected 13 units, got %d", units)
	}
}

func TestPlanDoesNotRejectOversizedPieces(t *testing.T) {
	t.Parallel()

	params := Params{Limit: 100, Kerf: 1, Precision: 1}
	groups := New().Plan([]RequiredPiece{{Length: 150, Quantity: 1}}, params)

	if len(groups) != 1 || len(groups[0]) != 1 {
		t.Fatalf("expected a single singleton group, got %v", groups)
	}
	if used := groups[0].Sum() + params.Kerf; used <= params.Limit {
		t.Fatalf("expected oversized group to exceed the limit, used %v", used)
	}
}

func TestPlanReservesCandidateKerf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pieces []RequiredPiece
		kerf   float64
		want   [][]float64
	}{
		{
			name:   "cut of the candidate would overflow",
			pieces: []RequiredPiece{{Length: 50, Quantity: 1}, {Length: 49, Quantity: 1}},
			kerf:   1,
			want:   [][]float64{{50}, {49}},
		},
		{
			name:   "candidate and its cut fit exactly",
			pieces: []RequiredPiece{{Length: 50, Quantity: 1}, {Length: 48, Quantity: 1}},
			kerf:   1,
			want:   [][]float64{{50, 48}},
		},
		{
			name:   "no kerf fills the segment",
			pieces: []RequiredPiece{{Length: 50, Quantity: 2}},
			kerf:   0,
			want:   [][]float64{{50, 50}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			params := Params{Limit: 100, Kerf: tc.kerf, Precision: 1}
			groups := New().Plan(tc.pieces, params)
			if got := groupLengths(groups); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i, g := range groups {
				if used := g.Sum() + params.Kerf*float64(len(g)); used > params.Limit {
					t.Fatalf("group %d uses %v of %v", i, used, params.Limit)
				}
			}
		})
	}
}

func TestPlanProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for run := 0; run < 200; run++ {
		params := Params{
			Limit:     100,
			Kerf:      float64(rng.IntN(21)) / 10,
			Precision: 1,
		}
		pieces := randomPieces(rng, params)

		t.Run(fmt.Sprintf("run_%d", run), func(t *testing.T) {
			groups := New().Plan(pieces, params)

			if again := New().Plan(pieces, params); !reflect.DeepEqual(groups, again) {
				t.Fatalf("plan is not deterministic")
			}

			var placed []PoolItem
			for _, g := range groups {
				if len(g) == 0 {
					t.Fatalf("empty group emitted")
				}
				used := g.Sum() + params.Kerf*float64(len(g))
				if used > params.Limit+1e-9 {
					t.Fatalf("group %v uses %v of %v", g, used, params.Limit)
				}
				placed = append(placed, g...)
			}

			want := Expand(pieces)
			if !sameMultiset(placed, want) {
				t.Fatalf("placed units %v do not match pool %v", placed, want)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	pieces := []RequiredPiece{
		{Length: 10, Quantity: 2},
		{Length: 30, Quantity: 1},
		{Length: 10, Quantity: 1},
		{Length: 20, Quantity: 2},
	}

	got := Expand(pieces)
	want := Pool{
		{1, 30},
		{3, 20}, {3, 20},
		{0, 10}, {0, 10}, {2, 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpandCount(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		pieces := randomPieces(rng, Params{Limit: 100})
		total := 0
		for _, p := range pieces {
			total += p.Quantity
		}
		if got := len(Expand(pieces)); got != total {
			t.Fatalf("expected %d units, got %d", total, got)
		}
	}
}

func TestExpandEmpty(t *testing.T) {
	t.Parallel()

	if got := Expand(nil); len(got) != 0 {
		t.Fatalf("expected empty pool, got %v", got)
	}
}

func TestPoolRemove(t *testing.T) {
	t.Parallel()

	pool := Pool{{0, 5}, {0, 5}, {1, 3}}

	pool.Remove(1)
	if want := (Pool{{0, 5}, {1, 3}}); !reflect.DeepEqual(pool, want) {
		t.Fatalf("expected %v, got %v", want, pool)
	}

	pool.Remove(-1)
	pool.Remove(2)
	if len(pool) != 2 {
		t.Fatalf("expected out-of-range removals to be ignored, got %v", pool)
	}
}

func TestGroupSum(t *testing.T) {
	t.Parallel()

	if got := (Group{}).Sum(); got != 0 {
		t.Fatalf("expected 0 for empty group, got %v", got)
	}
	if got := (Group{{0, 1.5}, {1, 2}, {1, 2}}).Sum(); got != 5.5 {
		t.Fatalf("expected 5.5, got %v", got)
	}
}

func randomPieces(rng *rand.Rand, params Params) []RequiredPiece {
	n := rng.IntN(8)
	pieces := make([]RequiredPiece, n)
	maxTenths := int((params.Limit - params.Kerf) * 10)
	for i := range pieces {
		pieces[i] = RequiredPiece{
			Length:   float64(1+rng.IntN(maxTenths)) / 10,
			Quantity: 1 + rng.IntN(5),
		}
	}
	return pieces
}

func sameMultiset(a, b []PoolItem) bool {
	if len(a) != len(b) {
		return false
	}
	sorted := func(items []PoolItem) []PoolItem {
		out := append([]PoolItem(nil), items...)
		sort.Slice(out, func(i, j int) bool {
			if out[i].SourceIndex != out[j].SourceIndex {
				return out[i].SourceIndex < out[j].SourceIndex
			}
			return out[i].Length < out[j].Length
		})
		return out
	}
	return reflect.DeepEqual(sorted(a), sorted(b))
}

func BenchmarkPlanPrecision1(b *testing.B) {
	benchmarkPlan(b, 1)
}

func BenchmarkPlanPrecision3(b *testing.B) {
	benchmarkPlan(b, 3)
}

func benchmarkPlan(b *testing.B, precision int) {
	pieces := []RequiredPiece{
		{Length: 1200, Quantity: 40},
		{Length: 850.5, Quantity: 60},
		{Length: 430, Quantity: 80},
		{Length: 99.9, Quantity: 120},
	}
	params := Params{Limit: 6000, Kerf: 3, Precision: precision}
	p := New()
	for i := 0; i < b.N; i++ {
		_ = p.Plan(pieces, params)
	}
}

func groupLengths(groups []Group) [][]float64 {
	out := make([][]float64, len(groups))
	for i, g := range groups {
		out[i] = make([]float64, len(g))
		for j, item := range g {
			out[i][j] = item.Length
		}
	}
	return out
}
