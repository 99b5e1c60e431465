// Package selection decides which fresh deals are worth announcing in a run.
//
// Candidates first pass a category priority gate. The surviving pool is then
// searched with a discount window whose lower bound steps down until a quota
// is met, falling back to a plain floor on the pool and finally on every
// candidate. The chosen deals are returned sorted by discount, highest first.
package selection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pauljones0/smart-deals-bot/internal/models"
)

// Outcome records which stage of the search produced the result.
type Outcome int

const (
	OutcomeNothing Outcome = iota
	OutcomeWindow
	OutcomeFloorFallback
	OutcomeAbsoluteFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWindow:
		return "window"
	case OutcomeFloorFallback:
		return "floor_fallback"
	case OutcomeAbsoluteFallback:
		return "absolute_fallback"
	default:
		return "nothing"
	}
}

type Options struct {
	WindowStart        float64
	WindowEnd          float64
	Floor              float64
	Quota              int
	Step               float64
	PriorityCategories []string
}

func DefaultOptions() Options {
	return Options{
		WindowStart:        70,
		WindowEnd:          90,
		Floor:              20,
		Quota:              3,
		Step:               10,
		PriorityCategories: []string{"Electronics", "Fashion", "Home", "Kitchen & Appliances"},
	}
}

type Result struct {
	Deals   []models.Deal
	Outcome Outcome
	// Threshold is the lower discount bound that produced Deals.
	Threshold float64
	// Prioritized is true when only priority-category deals were searched.
	Prioritized bool
}

// Empty reports that there is nothing to publish.
func (r Result) Empty() bool {
	return len(r.Deals) == 0
}

type state int

const (
	stateSearching state = iota
	stateFallback
	stateAbsolute
	stateSelected
	stateEmpty
)

// Select runs the priority gate and threshold search over candidates. The
// input must already be free of posted and duplicate deals. Select never
// fails; an empty Result means nothing qualified.
func Select(candidates []models.Deal, opts Options) Result {
	priority, other := Partition(candidates, opts.PriorityCategories)
	pool := priority
	prioritized := len(priority) > 0
	if !prioritized {
		pool = other
	}

	var (
		st        = stateSearching
		threshold = opts.WindowStart
		chosen    []models.Deal
		outcome   = OutcomeNothing
	)

	for st != stateSelected && st != stateEmpty {
		switch st {
		case stateSearching:
			chosen = within(pool, threshold, opts.WindowEnd)
			if len(chosen) >= opts.Quota {
				outcome = OutcomeWindow
				st = stateSelected
				break
			}
			if opts.Step <= 0 {
				st = stateFallback
				break
			}
			threshold -= opts.Step
			if threshold < opts.Floor {
				st = stateFallback
			}
		case stateFallback:
			threshold = opts.Floor
			chosen = atLeast(pool, opts.Floor)
			if len(chosen) > 0 {
				outcome = OutcomeFloorFallback
				st = stateSelected
			} else {
				st = stateAbsolute
			}
		case stateAbsolute:
			threshold = opts.Floor
			chosen = atLeast(candidates, opts.Floor)
			if len(chosen) > 0 {
				outcome = OutcomeAbsoluteFallback
				st = stateSelected
			} else {
				outcome = OutcomeNothing
				st = stateEmpty
			}
		}

		// A zero quota can select an empty window; treat it as a miss.
		if st == stateSelected && len(chosen) == 0 {
			st = stateAbsolute
		}
	}

	if st == stateEmpty {
		return Result{Outcome: OutcomeNothing, Threshold: threshold, Prioritized: prioritized}
	}

	slices.SortStableFunc(chosen, func(a, b models.Deal) int {
		return cmp.Compare(b.DiscountPercent, a.DiscountPercent)
	})
	return Result{Deals: chosen, Outcome: outcome, Threshold: threshold, Prioritized: prioritized}
}

// Partition splits deals in one pass into those whose category contains any
// of the preferred names (case-insensitive) and the rest. Order is kept.
func Partition(deals []models.Deal, preferred []string) (priority, other []models.Deal) {
	needles := make([]string, 0, len(preferred))
	for _, p := range preferred {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			needles = append(needles, p)
		}
	}

	for _, d := range deals {
		if matchesAny(strings.ToLower(d.Category), needles) {
			priority = append(priority, d)
		} else {
			other = append(other, d)
		}
	}
	return priority, other
}

func matchesAny(category string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(category, n) {
			return true
		}
	}
	return false
}

func within(deals []models.Deal, lo, hi float64) []models.Deal {
	var out []models.Deal
	for _, d := range deals {
		if d.DiscountPercent >= lo && d.DiscountPercent <= hi {
			out = append(out, d)
		}
	}
	return out
}

func atLeast(deals []models.Deal, floor float64) []models.Deal {
	var out []models.Deal
	for _, d := range deals {
		if d.DiscountPercent >= floor {
			out = append(out, d)
		}
	}
	return out
}
