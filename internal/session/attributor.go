package session

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/searchlens/ctrpipeline/internal/config"
	"github.com/searchlens/ctrpipeline/internal/loader"
)

// Attributed is an input event plus the product resolved for its position in
// the session timeline. Product is empty when the session carries no product
// facet anywhere.
type Attributed struct {
	loader.Event
	Product string
}

// Attribute resolves a product for every event. Events are grouped by
// session, ordered stably by timestamp (input order breaks ties), then the
// most recent preceding product-facet value is filled forward; rows before
// the first known value inherit the nearest following one. Output is ordered
// by session id, then by timeline position, so downstream work is
// deterministic for a given input.
func Attribute(events []loader.Event, cfg config.PipelineConfig) []Attributed {
	groups := make(map[string][]loader.Event)
	for _, ev := range events {
		groups[ev.SessionID] = append(groups[ev.SessionID], ev)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Attributed, 0, len(events))
	unresolved := 0
	for _, id := range ids {
		group := groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Timestamp.Equal(group[j].Timestamp) {
				return group[i].Seq < group[j].Seq
			}
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		attributed := fillSession(group, cfg.ProductFacet)
		if attributed[0].Product == "" {
			unresolved++
		}
		out = append(out, attributed...)
	}

	log.Info().
		Int("sessions", len(ids)).
		Int("sessions_without_product", unresolved).
		Msg("Product attribution complete")

	return out
}

// fillSession applies the forward pass then backfills the leading rows that
// precede the first known product. A session with no product-facet rows
// leaves every Product empty.
func fillSession(group []loader.Event, productFacet string) []Attributed {
	attributed := make([]Attributed, len(group))

	last := ""
	for i, ev := range group {
		if ev.FacetType == productFacet && ev.FacetValue != "" {
			last = ev.FacetValue
		}
		attributed[i] = Attributed{Event: ev, Product: last}
	}

	next := ""
	for i := len(attributed) - 1; i >= 0; i-- {
		if attributed[i].Product != "" {
			next = attributed[i].Product
		} else {
			attributed[i].Product = next
		}
	}

	return attributed
}

// Partition splits attributed events for aggregation. valid holds every row
// with a resolved product regardless of activity type (total-session
// evidence), clicks the subset of valid that are click events, and orphans
// the click events that never resolved a product. Orphans keep their
// original field values for the error report.
func Partition(attributed []Attributed, cfg config.PipelineConfig) (valid, clicks, orphans []Attributed) {
	for _, ev := range attributed {
		if ev.Product == "" {
			if ev.ActivityType == cfg.ClickActivity {
				orphans = append(orphans, ev)
			}
			continue
		}
		valid = append(valid, ev)
		if ev.ActivityType == cfg.ClickActivity {
			clicks = append(clicks, ev)
		}
	}

	if len(orphans) > 0 {
		log.Error().
			Int("count", len(orphans)).
			Msg("Click events without a resolvable product")
	}

	return valid, clicks, orphans
}
