// Package sink persists experiment results incrementally. Two artifacts
// are maintained side by side: a flat CSV of scored rows for analysis,
// and a JSONL file carrying the full records including press-release
// text. Both are append-only and flushed to disk after every batch so a
// crash loses at most the batch in flight.
package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ahrav/stakesbench/internal/domain"
)

// ErrSinkClosed is returned by Append after Close.
var ErrSinkClosed = errors.New("result sink closed")

// Sink receives terminal result rows. Implementations must be safe for
// use from a single orchestrator goroutine; batch-internal concurrency
// never reaches the sink.
type Sink interface {
	// Append persists the given rows and flushes them to stable storage
	// before returning.
	Append(ctx context.Context, rows []domain.ResultRow) error

	// CompletedCells returns the keys of cells already persisted,
	// including those recovered from a previous interrupted run.
	CompletedCells() map[string]bool

	Close() error
}

// csvHeader is the flat analysis schema. Press-release text is
// deliberately absent; it lives in the JSONL records.
var csvHeader = []string{
	"timestamp",
	"scenario",
	"scenario_name",
	"stakes_tier",
	"measurement_condition",
	"model",
	"model_full_id",
	"run",
	"outcome",
	"heuristic_refusal",
	"generation_latency_ms",
	"prompt_tokens",
	"completion_tokens",
	"total_tokens",
	"refusal_reason",
	"classification",
	"measurement_mentioned",
	"measurement_accurate",
	"distortion_type",
	"disclosure_score",
	"fabrication_count",
	"failure_reason",
}

// Column positions needed to reconstruct cell keys during resume.
const (
	colScenario  = 1
	colTier      = 3
	colCondition = 4
	colModel     = 5
	colRun       = 7
)

// FileSink writes results to a CSV and a JSONL file under a single
// output directory. Opening an existing pair resumes: previously
// persisted cell keys are recovered from the CSV and reported through
// CompletedCells.
type FileSink struct {
	mu        sync.Mutex
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonlFile *os.File
	completed map[string]bool
	closed    bool
}

// Open creates or reopens the sink files under dir. The CSV header is
// written once, on first creation only.
func Open(dir, csvName, jsonlName string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, csvName)
	completed, needHeader, err := scanCompleted(csvPath)
	if err != nil {
		return nil, err
	}

	csvFile, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results csv: %w", err)
	}

	jsonlFile, err := os.OpenFile(filepath.Join(dir, jsonlName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		csvFile.Close()
		return nil, fmt.Errorf("open records jsonl: %w", err)
	}

	s := &FileSink{
		csvFile:   csvFile,
		csvWriter: csv.NewWriter(csvFile),
		jsonlFile: jsonlFile,
		completed: completed,
	}
	if needHeader {
		if err := s.csvWriter.Write(csvHeader); err != nil {
			s.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		s.csvWriter.Flush()
		if err := s.csvWriter.Error(); err != nil {
			s.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	return s, nil
}

// scanCompleted reads an existing results CSV and returns the cell keys
// it contains. A missing or empty file means a fresh run.
func scanCompleted(path string) (map[string]bool, bool, error) {
	completed := make(map[string]bool)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return completed, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan results csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("scan results csv: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(record) <= colRun {
			continue
		}
		run, err := strconv.Atoi(record[colRun])
		if err != nil {
			continue
		}
		cell := domain.Cell{
			Scenario:   record[colScenario],
			StakesTier: record[colTier],
			Condition:  record[colCondition],
			Model:      record[colModel],
			Run:        run,
		}
		completed[cell.Key()] = true
	}

	// first still set means the file existed but had no header row.
	return completed, first, nil
}

// Append validates, persists, and fsyncs the rows. A row that fails
// validation aborts the whole append; nothing in the batch is
// considered durable until both files have synced.
func (s *FileSink) Append(ctx context.Context, rows []domain.ResultRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}

	for i := range rows {
		row := &rows[i]
		if err := row.Validate(); err != nil {
			return fmt.Errorf("row %s: %w", row.Cell.Key(), err)
		}
		if err := s.csvWriter.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("append csv row: %w", err)
		}
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := s.jsonlFile.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("append jsonl record: %w", err)
		}
	}

	s.csvWriter.Flush()
	if err := s.csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := s.csvFile.Sync(); err != nil {
		return fmt.Errorf("sync csv: %w", err)
	}
	if err := s.jsonlFile.Sync(); err != nil {
		return fmt.Errorf("sync jsonl: %w", err)
	}

	for i := range rows {
		s.completed[rows[i].Cell.Key()] = true
	}
	return nil
}

// CompletedCells returns a copy of the persisted cell-key set.
func (s *FileSink) CompletedCells() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.completed))
	for k := range s.completed {
		out[k] = true
	}
	return out
}

// Close flushes and closes both files. Safe to call twice.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.csvWriter.Flush()
	errCSV := s.csvWriter.Error()
	if err := s.csvFile.Close(); errCSV == nil {
		errCSV = err
	}
	errJSONL := s.jsonlFile.Close()
	if errCSV != nil {
		return errCSV
	}
	return errJSONL
}

// csvRecord flattens one result row into the analysis schema.
func csvRecord(row *domain.ResultRow) []string {
	rec := make([]string, len(csvHeader))
	rec[0] = row.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00")
	rec[colScenario] = row.Cell.Scenario
	rec[2] = row.ScenarioName
	rec[colTier] = row.Cell.StakesTier
	rec[colCondition] = row.Cell.Condition
	rec[colModel] = row.Cell.Model
	rec[6] = row.ModelFullID
	rec[colRun] = strconv.Itoa(row.Cell.Run)
	rec[8] = string(row.Outcome)
	rec[9] = strconv.FormatBool(row.HeuristicRefusal)
	rec[10] = strconv.FormatInt(row.GenerationLatencyMs, 10)
	if row.Usage != nil {
		rec[11] = strconv.FormatInt(row.Usage.PromptTokens, 10)
		rec[12] = strconv.FormatInt(row.Usage.CompletionTokens, 10)
		rec[13] = strconv.FormatInt(row.Usage.TotalTokens, 10)
	}
	if v := row.Verdict; v != nil {
		rec[14] = v.RefusalReason
		rec[15] = string(v.Classification)
		if v.MeasurementMentioned != nil {
			rec[16] = strconv.FormatBool(*v.MeasurementMentioned)
		}
		if v.MeasurementAccurate != nil {
			rec[17] = strconv.FormatBool(*v.MeasurementAccurate)
		}
		if v.Distortion != nil {
			rec[18] = v.Distortion.DistortionType
		}
		if v.DisclosureScore != nil {
			rec[19] = strconv.FormatFloat(*v.DisclosureScore, 'f', -1, 64)
		}
		if v.FabricationCount != nil {
			rec[20] = strconv.Itoa(*v.FabricationCount)
		}
	}
	rec[21] = row.FailureReason
	return rec
}
