package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResultRowValidate(t *testing.T) {
	cell := Cell{Scenario: "A", StakesTier: "low", Condition: "moderate", Model: "sonnet", Run: 1}
	scored := &Verdict{
		Rubric:           RubricFacts,
		DisclosureScore:  floatPtr(0.5),
		FabricationCount: intPtr(0),
	}
	refused := &Verdict{
		Rubric:        RubricFacts,
		Refused:       true,
		RefusalReason: "declined the task",
	}

	tests := []struct {
		name    string
		row     ResultRow
		wantErr bool
	}{
		{
			name: "success with scored verdict",
			row:  ResultRow{Cell: cell, Outcome: OutcomeSuccess, Verdict: scored},
		},
		{
			name: "refusal with refused verdict",
			row:  ResultRow{Cell: cell, Outcome: OutcomeRefusal, Verdict: refused},
		},
		{
			name: "generation failure with reason",
			row:  ResultRow{Cell: cell, Outcome: OutcomeGenerationFailed, FailureReason: "max retries exceeded"},
		},
		{
			name:    "failure without reason",
			row:     ResultRow{Cell: cell, Outcome: OutcomeJudgeFailed},
			wantErr: true,
		},
		{
			name:    "failure carrying verdict",
			row:     ResultRow{Cell: cell, Outcome: OutcomeJudgeParseFailed, FailureReason: "bad JSON", Verdict: scored},
			wantErr: true,
		},
		{
			name:    "success without verdict",
			row:     ResultRow{Cell: cell, Outcome: OutcomeSuccess},
			wantErr: true,
		},
		{
			name:    "success with refused verdict",
			row:     ResultRow{Cell: cell, Outcome: OutcomeSuccess, Verdict: refused},
			wantErr: true,
		},
		{
			name:    "refusal with scored verdict",
			row:     ResultRow{Cell: cell, Outcome: OutcomeRefusal, Verdict: scored},
			wantErr: true,
		},
		{
			name:    "unknown outcome",
			row:     ResultRow{Cell: cell, Outcome: Outcome("exploded"), FailureReason: "boom"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.Timestamp = time.Now()
			err := tt.row.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRow)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOutcomeIsFailure(t *testing.T) {
	require.False(t, OutcomeSuccess.IsFailure())
	require.False(t, OutcomeRefusal.IsFailure())
	require.True(t, OutcomeGenerationFailed.IsFailure())
	require.True(t, OutcomeJudgeFailed.IsFailure())
	require.True(t, OutcomeJudgeParseFailed.IsFailure())
}
