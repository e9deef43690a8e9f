package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/config"
)

// Column names required in the input export. Extra columns are ignored.
const (
	ColSession    = "Session Identifier"
	ColTime       = "Activity Time"
	ColFacetValue = "Facet Value"
	ColActivity   = "Activity Type"
	ColFacetType  = "Facet Type"
)

var requiredColumns = []string{ColSession, ColTime, ColFacetValue, ColActivity, ColFacetType}

// Built-in layouts tried against Activity Time values, in order. Config
// layouts are tried first.
var builtinLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// Event is one normalized input row. FacetValue and FacetType hold the
// original (trimmed) source values so error reporting can show them verbatim.
// Seq is the zero-based position of the row in the input, used to keep the
// per-session sort stable for equal timestamps.
type Event struct {
	SessionID    string
	Timestamp    time.Time
	ActivityType string
	FacetType    string
	FacetValue   string
	Seq          int
}

// Stats summarizes a load pass.
type Stats struct {
	Loaded  int
	Dropped int
}

// SchemaError reports required columns missing from the input header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ErrNoUsableRows means the file parsed but yielded zero usable events.
var ErrNoUsableRows = errors.New("input contains no usable rows")

// Load reads and normalizes the session export at path. Every field is
// whitespace-trimmed; matching downstream is exact and case-sensitive.
// Rows with unparsable timestamps or too few fields are dropped with a
// warning rather than aborting the run.
func Load(path string, cfg config.PipelineConfig) ([]Event, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, ErrNoUsableRows
		}
		return nil, nil, errors.Wrap(err, "read header")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	layouts := append(append([]string{}, cfg.TimestampLayouts...), builtinLayouts...)

	var events []Event
	stats := &Stats{}
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read row %d", row+2)
		}
		row++

		if len(record) < len(header) {
			log.Warn().Int("row", row).Int("fields", len(record)).Msg("Dropping short row")
			stats.Dropped++
			continue
		}

		rawTime := strings.TrimSpace(record[idx[ColTime]])
		ts, ok := parseTimestamp(rawTime, layouts)
		if !ok {
			log.Warn().Int("row", row).Str("activity_time", rawTime).Msg("Dropping row with unparsable timestamp")
			stats.Dropped++
			continue
		}

		events = append(events, Event{
			SessionID:    strings.TrimSpace(record[idx[ColSession]]),
			Timestamp:    ts,
			ActivityType: strings.TrimSpace(record[idx[ColActivity]]),
			FacetType:    strings.TrimSpace(record[idx[ColFacetType]]),
			FacetValue:   strings.TrimSpace(record[idx[ColFacetValue]]),
			Seq:          stats.Loaded,
		})
		stats.Loaded++
	}

	if stats.Loaded == 0 {
		return nil, nil, ErrNoUsableRows
	}

	log.Info().
		Int("loaded", stats.Loaded).
		Int("dropped", stats.Dropped).
		Str("path", path).
		Msg("Input loaded")

	return events, stats, nil
}

func parseTimestamp(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
