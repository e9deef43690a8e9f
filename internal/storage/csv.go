package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/loader"
	"github.com/searchlens/ctrpipeline/internal/report"
	"github.com/searchlens/ctrpipeline/internal/session"
)

const (
	// filenameStamp qualifies output names so reruns never overwrite.
	filenameStamp = "20060102_150405"
	// activityTimeFormat renders timestamps in the error report.
	activityTimeFormat = "2006-01-02 15:04:05"
)

var reportHeader = []string{"Product", "Total Sessions", "Sessions With Clicks", "CTR (%)"}

var errorHeader = []string{
	loader.ColSession,
	loader.ColTime,
	loader.ColFacetValue,
	loader.ColActivity,
	loader.ColFacetType,
}

// WriteReport writes the CTR report to dir and returns the full path.
func WriteReport(dir, prefix string, generatedAt time.Time, stats []report.ProductStat) (string, error) {
	rows := make([][]string, 0, len(stats)+1)
	rows = append(rows, reportHeader)
	for _, s := range stats {
		rows = append(rows, []string{
			s.Product,
			strconv.Itoa(s.TotalSessions),
			strconv.Itoa(s.SessionsWithClicks),
			s.FormattedCTR(),
		})
	}

	path := filepath.Join(dir, prefix+"_"+generatedAt.Format(filenameStamp)+".csv")
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}

	log.Info().Str("path", path).Int("products", len(stats)).Msg("CTR report written")
	return path, nil
}

// WriteErrorReport writes the unattributed click events to dir with their
// original field values. Nothing is written when orphans is empty.
func WriteErrorReport(dir, prefix string, generatedAt time.Time, orphans []session.Attributed) (string, error) {
	if len(orphans) == 0 {
		return "", nil
	}

	rows := make([][]string, 0, len(orphans)+1)
	rows = append(rows, errorHeader)
	for _, ev := range orphans {
		rows = append(rows, []string{
			ev.SessionID,
			ev.Timestamp.Format(activityTimeFormat),
			ev.FacetValue,
			ev.ActivityType,
			ev.FacetType,
		})
	}

	path := filepath.Join(dir, prefix+"_"+generatedAt.Format(filenameStamp)+".csv")
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}

	log.Info().Str("path", path).Int("clicks", len(orphans)).Msg("Error report written")
	return path, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "flush %s", path)
}
