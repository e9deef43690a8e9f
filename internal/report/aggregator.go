package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/session"
)

// ProductStat is one output row of the CTR report.
type ProductStat struct {
	Product            string
	TotalSessions      int
	SessionsWithClicks int
	CTR                float64
}

// FormattedCTR renders the CTR as a percentage with two decimals, e.g. "25.00%".
func (s ProductStat) FormattedCTR() string {
	return fmt.Sprintf("%.2f%%", s.CTR)
}

// Aggregate computes per-product session counts from attributed events.
// valid is every event with a resolved product, clicks the click subset.
// Sessions are counted once per product regardless of how many events they
// contribute. An empty input yields an empty report. Rows are ordered
// lexically by product name.
func Aggregate(valid, clicks []session.Attributed) []ProductStat {
	totals := make(map[string]map[string]struct{})
	for _, ev := range valid {
		sessions, ok := totals[ev.Product]
		if !ok {
			sessions = make(map[string]struct{})
			totals[ev.Product] = sessions
		}
		sessions[ev.SessionID] = struct{}{}
	}

	clicked := make(map[string]map[string]struct{})
	for _, ev := range clicks {
		sessions, ok := clicked[ev.Product]
		if !ok {
			sessions = make(map[string]struct{})
			clicked[ev.Product] = sessions
		}
		sessions[ev.SessionID] = struct{}{}
	}

	stats := make([]ProductStat, 0, len(totals))
	for product, sessions := range totals {
		stat := ProductStat{
			Product:            product,
			TotalSessions:      len(sessions),
			SessionsWithClicks: len(clicked[product]),
		}
		if stat.TotalSessions > 0 {
			ctr := float64(stat.SessionsWithClicks) / float64(stat.TotalSessions) * 100
			stat.CTR = math.Round(ctr*100) / 100
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Product < stats[j].Product
	})

	log.Info().Int("products", len(stats)).Msg("CTR aggregation complete")

	return stats
}
