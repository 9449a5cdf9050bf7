package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellKeyRoundTrip(t *testing.T) {
	cell := Cell{Scenario: "A", StakesTier: "low", Condition: "pending", Model: "sonnet", Run: 2}
	assert.Equal(t, "A|low|pending|sonnet|2", cell.Key())

	control := Cell{Scenario: "D", Model: "sonnet", Run: 1}
	assert.Equal(t, "D|||sonnet|1", control.Key())
}

func TestCellValidate(t *testing.T) {
	tests := []struct {
		name    string
		cell    Cell
		wantErr bool
	}{
		{
			name: "valid full cell",
			cell: Cell{Scenario: "A", StakesTier: "high", Condition: "severe", Model: "sonnet", Run: 1},
		},
		{
			name: "valid control cell without tier or condition",
			cell: Cell{Scenario: "D", Model: "llama", Run: 3},
		},
		{
			name:    "missing scenario",
			cell:    Cell{Model: "sonnet", Run: 1},
			wantErr: true,
		},
		{
			name:    "missing model",
			cell:    Cell{Scenario: "A", Run: 1},
			wantErr: true,
		},
		{
			name:    "zero run index",
			cell:    Cell{Scenario: "A", Model: "sonnet", Run: 0},
			wantErr: true,
		},
		{
			name:    "separator in identity field",
			cell:    Cell{Scenario: "A|B", Model: "sonnet", Run: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cell.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCell)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPlanEnumerate(t *testing.T) {
	plan := Plan{
		Scenarios:   []string{"A", "B", "C"},
		Tiers:       []string{"low", "medium", "high"},
		Conditions:  []string{"pending", "minor", "moderate", "severe"},
		Models:      []string{"sonnet", "llama", "gpt4o-mini"},
		RunsPerCell: 3,
	}

	cells, err := plan.Enumerate()
	require.NoError(t, err)
	assert.Len(t, cells, 3*3*4*3*3)

	// Deterministic ordering: enumerating twice yields identical keys.
	again, err := plan.Enumerate()
	require.NoError(t, err)
	for i := range cells {
		assert.Equal(t, cells[i].Key(), again[i].Key())
	}

	// Every key is unique.
	seen := make(map[string]bool, len(cells))
	for _, cell := range cells {
		require.False(t, seen[cell.Key()], "duplicate cell %s", cell.Key())
		seen[cell.Key()] = true
	}
}

func TestPlanEnumerateControlCollapse(t *testing.T) {
	plan := Plan{
		Scenarios:        []string{"A", "D"},
		Tiers:            []string{"low", "medium", "high"},
		Conditions:       []string{"pending", "minor", "moderate", "severe"},
		Models:           []string{"sonnet"},
		RunsPerCell:      2,
		ControlScenarios: []string{"D"},
	}

	cells, err := plan.Enumerate()
	require.NoError(t, err)

	// A expands the full grid, D collapses to runs only.
	assert.Len(t, cells, 3*4*2+2)

	var controlCells int
	for _, cell := range cells {
		if cell.Scenario == "D" {
			controlCells++
			assert.Empty(t, cell.StakesTier)
			assert.Empty(t, cell.Condition)
		}
	}
	assert.Equal(t, 2, controlCells)
}

func TestPlanEnumerateEmpty(t *testing.T) {
	_, err := Plan{}.Enumerate()
	require.ErrorIs(t, err, ErrEmptyPlan)
}
