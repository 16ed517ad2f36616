package assemble

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/coords"
	"github.com/jamespfennell/mzkbb/internal/testutil"
	"github.com/rs/zerolog"
)

var source = coords.Map{
	"3 Maja/Dworzec": {Latitude: 49.8279341851486, Longitude: 19.0446281433105},
	"Bystra":         {Latitude: 49.77, Longitude: 19.11},
}

func stopsOf(stops ...mzkbb.Stop) iter.Seq2[mzkbb.Stop, error] {
	return func(yield func(mzkbb.Stop, error) bool) {
		for _, stop := range stops {
			if !yield(stop, nil) {
				return
			}
		}
	}
}

func TestAssemble(t *testing.T) {
	input := []mzkbb.Stop{
		{Id: "272", Name: "3 Maja/Dworzec"},
		{Id: "17", Name: "bystra"},
		{Id: "18", Name: "Bystra"},
	}
	for _, tc := range []struct {
		policy         Policy
		expected       []mzkbb.Stop
		expectedReport Report
	}{
		{
			policy: DropUnmatched,
			expected: []mzkbb.Stop{
				{Id: "272", Name: "3 Maja/Dworzec", Lattitude: ptr(49.8279341851486), Longitude: ptr(19.0446281433105)},
				{Id: "18", Name: "Bystra", Lattitude: ptr(49.77), Longitude: ptr(19.11)},
			},
			expectedReport: Report{Matched: 2, Unmatched: 1, Dropped: 1},
		},
		{
			policy: ZeroUnmatched,
			expected: []mzkbb.Stop{
				{Id: "272", Name: "3 Maja/Dworzec", Lattitude: ptr(49.8279341851486), Longitude: ptr(19.0446281433105)},
				{Id: "17", Name: "bystra", Lattitude: ptr(0.0), Longitude: ptr(0.0)},
				{Id: "18", Name: "Bystra", Lattitude: ptr(49.77), Longitude: ptr(19.11)},
			},
			expectedReport: Report{Matched: 2, Unmatched: 1},
		},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			logger, logs := testutil.Logger()
			a := Assembler{Source: source, Policy: tc.policy, Logger: logger}
			actual, report, err := a.Assemble(context.Background(), stopsOf(input...))
			if err != nil {
				t.Fatalf("Assemble() returned unexpected error: %s", err)
			}
			if diff := cmp.Diff(tc.expected, actual); diff != "" {
				t.Errorf("Assemble() diff (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.expectedReport, report); diff != "" {
				t.Errorf("Assemble() report diff (-want +got):\n%s", diff)
			}
			if got := testutil.CountLevel(logs, zerolog.WarnLevel); got != 1 {
				t.Errorf("got %d warnings, want 1", got)
			}
		})
	}
}

func TestAssembleWithoutPolicy(t *testing.T) {
	a := Assembler{Source: source, Logger: zerolog.Nop()}
	if _, _, err := a.Assemble(context.Background(), stopsOf()); err == nil {
		t.Errorf("Assemble() without a policy returned no error")
	}
}

func TestAssembleErrors(t *testing.T) {
	errStops := errors.New("bad page")
	failing := func(yield func(mzkbb.Stop, error) bool) {
		if !yield(mzkbb.Stop{Id: "272", Name: "3 Maja/Dworzec"}, nil) {
			return
		}
		yield(mzkbb.Stop{}, errStops)
	}
	a := Assembler{Source: source, Policy: ZeroUnmatched, Logger: zerolog.Nop()}
	if _, _, err := a.Assemble(context.Background(), failing); !errors.Is(err, errStops) {
		t.Errorf("Assemble() error = %v, want %v", err, errStops)
	}

	errSource := errors.New("feed unavailable")
	a = Assembler{Source: failingSource{errSource}, Policy: ZeroUnmatched, Logger: zerolog.Nop()}
	if _, _, err := a.Assemble(context.Background(), stopsOf(mzkbb.Stop{Id: "1", Name: "a"})); !errors.Is(err, errSource) {
		t.Errorf("Assemble() error = %v, want %v", err, errSource)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{DropUnmatched, ZeroUnmatched} {
		parsed, err := ParsePolicy(p.String())
		if err != nil || parsed != p {
			t.Errorf("ParsePolicy(%q) = (%v, %v), want %v", p.String(), parsed, err, p)
		}
	}
	if _, err := ParsePolicy(""); err == nil {
		t.Errorf("ParsePolicy(\"\") returned no error")
	}
}

type failingSource struct {
	err error
}

func (s failingSource) Lookup(context.Context, string) (mzkbb.Coordinate, bool, error) {
	return mzkbb.Coordinate{}, false, s.err
}

func ptr[T any](t T) *T {
	return &t
}
