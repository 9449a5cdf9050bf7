// Package domain defines the core experiment vocabulary: cells, verdicts,
// and result rows. Everything here is plain data with validation; no I/O.
//
// A Cell is one point in the experiment cross-product
// (scenario × stakes × measurement condition × model × run). Cells are
// immutable and uniquely identify one logical trial for the lifetime of a
// run; every other type in this package hangs off a cell identity.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell-specific errors.
var (
	// ErrInvalidCell is returned when a cell is missing required identity fields.
	ErrInvalidCell = errors.New("invalid experiment cell")

	// ErrEmptyPlan indicates a plan that enumerates to zero cells.
	ErrEmptyPlan = errors.New("experiment plan enumerates no cells")
)

// cellKeySeparator joins cell identity fields into a stable key.
// None of the identity fields may contain it.
const cellKeySeparator = "|"

// Cell uniquely identifies one logical trial in the experiment
// cross-product. Cells are value types: construct once, never mutate.
type Cell struct {
	// Scenario is the scenario identifier (e.g. "A", "B", "C", "D").
	Scenario string `json:"scenario"`

	// StakesTier is one of the configured stakes tiers (e.g. "low",
	// "medium", "high"). Empty for control scenarios.
	StakesTier string `json:"stakes_tier"`

	// Condition is the measurement condition (e.g. "pending", "minor",
	// "moderate", "severe"). Empty for control scenarios.
	Condition string `json:"measurement_condition,omitempty"`

	// Model is the short model identifier (e.g. "sonnet", "gpt4o-mini").
	Model string `json:"model"`

	// Run is the 1-based run index within this condition.
	Run int `json:"run"`
}

// Key returns the stable identity string used to correlate requests,
// results, and persisted rows for this cell. Two cells are the same trial
// iff their keys are equal.
func (c Cell) Key() string {
	return strings.Join([]string{
		c.Scenario, c.StakesTier, c.Condition, c.Model, fmt.Sprintf("%d", c.Run),
	}, cellKeySeparator)
}

// Validate reports whether the cell carries a complete identity.
func (c Cell) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario is required", ErrInvalidCell)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidCell)
	}
	if c.Run < 1 {
		return fmt.Errorf("%w: run index must be >= 1, got %d", ErrInvalidCell, c.Run)
	}
	for _, field := range []string{c.Scenario, c.StakesTier, c.Condition, c.Model} {
		if strings.Contains(field, cellKeySeparator) {
			return fmt.Errorf("%w: field %q contains reserved separator", ErrInvalidCell, field)
		}
	}
	return nil
}

// Plan describes the experiment cross-product to enumerate. The zero
// value is invalid; populate every slice and RunsPerCell.
type Plan struct {
	Scenarios   []string
	Tiers       []string
	Conditions  []string
	Models      []string
	RunsPerCell int

	// ControlScenarios lists scenarios that ignore stakes and measurement
	// manipulation; they enumerate a single tier/condition pair.
	ControlScenarios []string
}

// Enumerate expands the plan into the full ordered list of cells.
// Ordering is deterministic (scenario-major, run-minor) so batch slicing
// and resume behavior are stable across invocations.
func (p Plan) Enumerate() ([]Cell, error) {
	control := make(map[string]bool, len(p.ControlScenarios))
	for _, s := range p.ControlScenarios {
		control[s] = true
	}

	var cells []Cell
	for _, scenario := range p.Scenarios {
		tiers := p.Tiers
		conditions := p.Conditions
		if control[scenario] {
			tiers = []string{""}
			conditions = []string{""}
		}
		for _, tier := range tiers {
			for _, condition := range conditions {
				for _, model := range p.Models {
					for run := 1; run <= p.RunsPerCell; run++ {
						cell := Cell{
							Scenario:   scenario,
							StakesTier: tier,
							Condition:  condition,
							Model:      model,
							Run:        run,
						}
						if err := cell.Validate(); err != nil {
							return nil, err
						}
						cells = append(cells, cell)
					}
				}
			}
		}
	}
	if len(cells) == 0 {
		return nil, ErrEmptyPlan
	}
	return cells, nil
}
