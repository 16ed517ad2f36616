// Package assemble joins stop identity records with their coordinates.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jamespfennell/mzkbb"
	"github.com/jamespfennell/mzkbb/coords"
	"github.com/jamespfennell/mzkbb/warnings"
	"github.com/rs/zerolog"
)

// Policy decides what happens to a stop whose name has no coordinate.
//
// There is no default: the zero Policy is invalid and must be replaced by an explicit
// choice.
type Policy int32

const (
	// DropUnmatched leaves the stop out of the output.
	DropUnmatched Policy = 1
	// ZeroUnmatched emits the stop with the zero placeholder coordinate.
	ZeroUnmatched Policy = 2
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "drop":
		return DropUnmatched, nil
	case "zero":
		return ZeroUnmatched, nil
	}
	return 0, fmt.Errorf("unknown unmatched stop policy %q, expected drop or zero", s)
}

func (p Policy) String() string {
	switch p {
	case DropUnmatched:
		return "drop"
	case ZeroUnmatched:
		return "zero"
	}
	return "UNKNOWN"
}

// Report counts the outcome of an assembly.
type Report struct {
	Matched   int
	Unmatched int
	Dropped   int
}

type Assembler struct {
	Source coords.Source
	Policy Policy
	Logger zerolog.Logger
}

// Assemble looks up every stop by exact name and applies the policy to the stops that
// have no match. The first error from the stops sequence or the source aborts.
func (a *Assembler) Assemble(ctx context.Context, stops iter.Seq2[mzkbb.Stop, error]) ([]mzkbb.Stop, Report, error) {
	var report Report
	if a.Policy != DropUnmatched && a.Policy != ZeroUnmatched {
		return nil, report, errors.New("no unmatched stop policy configured")
	}
	var result []mzkbb.Stop
	for stop, err := range stops {
		if err != nil {
			return nil, report, err
		}
		coordinate, ok, err := a.Source.Lookup(ctx, stop.Name)
		if err != nil {
			return nil, report, fmt.Errorf("failed to look up stop %s %q: %w", stop.Id, stop.Name, err)
		}
		if ok {
			report.Matched += 1
			stop.SetCoordinate(coordinate)
			result = append(result, stop)
			continue
		}
		report.Unmatched += 1
		w := warnings.StopUnmatched{StopId: stop.Id, StopName: stop.Name, Dropped: a.Policy == DropUnmatched}
		a.Logger.Warn().Err(w).Str("policy", a.Policy.String()).Msg("unmatched stop")
		if a.Policy == DropUnmatched {
			report.Dropped += 1
			continue
		}
		stop.SetCoordinate(mzkbb.ZeroCoordinate)
		result = append(result, stop)
	}
	return result, report, nil
}
