package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/stakesbench/internal/domain"
)

func scoredRow(run int) domain.ResultRow {
	mentioned := true
	return domain.ResultRow{
		Timestamp:    time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Cell:         domain.Cell{Scenario: "A", StakesTier: "low", Condition: "moderate", Model: "sonnet", Run: run},
		ScenarioName: "River Pollution",
		ModelFullID:  "anthropic/claude-sonnet-4.5",
		Outcome:      domain.OutcomeSuccess,
		PressRelease: "FOR IMMEDIATE RELEASE...",
		Usage:        &domain.TokenUsage{PromptTokens: 200, CompletionTokens: 150, TotalTokens: 350},
		Verdict: &domain.Verdict{
			Rubric:               domain.RubricMeasurement,
			Classification:       domain.ClassificationDisclosedAccurate,
			MeasurementMentioned: &mentioned,
		},
	}
}

func failureRow(run int) domain.ResultRow {
	return domain.ResultRow{
		Timestamp:     time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC),
		Cell:          domain.Cell{Scenario: "B", StakesTier: "high", Condition: "severe", Model: "llama", Run: run},
		ScenarioName:  "Electric Kettle",
		ModelFullID:   "meta-llama/llama-3.1-70b-instruct",
		Outcome:       domain.OutcomeGenerationFailed,
		FailureReason: "maximum retries exceeded",
	}
}

func TestFileSinkAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)

	rows := []domain.ResultRow{scoredRow(1), failureRow(1)}
	require.NoError(t, s.Append(context.Background(), rows))
	require.NoError(t, s.Close())

	// CSV: header plus one record per row.
	f, err := os.Open(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "A", records[1][colScenario])
	assert.Equal(t, "success", records[1][8])
	assert.Equal(t, "disclosed_accurate", records[1][15])
	assert.Equal(t, "generation_failed", records[2][8])
	assert.Equal(t, "maximum retries exceeded", records[2][21])

	// JSONL: full records including press release text.
	jf, err := os.Open(filepath.Join(dir, "records.jsonl"))
	require.NoError(t, err)
	defer jf.Close()
	scanner := bufio.NewScanner(jf)
	require.True(t, scanner.Scan())
	var decoded domain.ResultRow
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
	assert.Equal(t, "FOR IMMEDIATE RELEASE...", decoded.PressRelease)
	assert.Equal(t, rows[0].Cell.Key(), decoded.Cell.Key())
}

func TestFileSinkResume(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), []domain.ResultRow{scoredRow(1), scoredRow(2)}))
	require.NoError(t, s.Close())

	// Reopen: previously persisted cells are reported as completed, and
	// the header is not rewritten.
	s2, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)
	defer s2.Close()

	completed := s2.CompletedCells()
	assert.Len(t, completed, 2)
	assert.True(t, completed[scoredRow(1).Cell.Key()])
	assert.True(t, completed[scoredRow(2).Cell.Key()])

	require.NoError(t, s2.Append(context.Background(), []domain.ResultRow{scoredRow(3)}))
	require.NoError(t, s2.Close())

	f, err := os.Open(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "one header and three rows after resume")
	assert.Equal(t, csvHeader, records[0])
}

func TestFileSinkRejectsInvalidRow(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)
	defer s.Close()

	bad := scoredRow(1)
	bad.Verdict = nil
	err = s.Append(context.Background(), []domain.ResultRow{bad})
	require.ErrorIs(t, err, domain.ErrInvalidRow)

	assert.Empty(t, s.CompletedCells())
}

func TestFileSinkClosed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is safe")

	err = s.Append(context.Background(), []domain.ResultRow{scoredRow(1)})
	require.ErrorIs(t, err, ErrSinkClosed)
}

func TestFileSinkCompletedCellsIsACopy(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "results.csv", "records.jsonl")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), []domain.ResultRow{scoredRow(1)}))

	snapshot := s.CompletedCells()
	snapshot["tampered"] = true
	assert.Len(t, s.CompletedCells(), 1)
}
