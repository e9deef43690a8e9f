package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchlens/ctrpipeline/internal/config"
	"github.com/searchlens/ctrpipeline/internal/loader"
)

var testCfg = config.PipelineConfig{
	ClickActivity: "Clicked Search Result",
	ProductFacet:  "Product",
}

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func productFacet(session, product string, offset int, seq int) loader.Event {
	return loader.Event{
		SessionID:    session,
		Timestamp:    base.Add(time.Duration(offset) * time.Second),
		ActivityType: "Applied Facet",
		FacetType:    "Product",
		FacetValue:   product,
		Seq:          seq,
	}
}

func click(session string, offset int, seq int) loader.Event {
	return loader.Event{
		SessionID:    session,
		Timestamp:    base.Add(time.Duration(offset) * time.Second),
		ActivityType: "Clicked Search Result",
		Seq:          seq,
	}
}

func products(attributed []Attributed) []string {
	out := make([]string, len(attributed))
	for i, ev := range attributed {
		out[i] = ev.Product
	}
	return out
}

func TestAttributeFillsForwardAndBackward(t *testing.T) {
	events := []loader.Event{
		click("s1", 0, 0),
		productFacet("s1", "A", 10, 1),
		click("s1", 20, 2),
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 3)
	assert.Equal(t, []string{"A", "A", "A"}, products(attributed))
}

func TestAttributeMidSessionSwitch(t *testing.T) {
	events := []loader.Event{
		productFacet("s1", "A", 0, 0),
		click("s1", 10, 1),
		productFacet("s1", "B", 20, 2),
		click("s1", 30, 3),
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 4)
	assert.Equal(t, []string{"A", "A", "B", "B"}, products(attributed))
}

func TestAttributeNoProductSession(t *testing.T) {
	events := []loader.Event{
		click("s1", 0, 0),
		{SessionID: "s1", Timestamp: base.Add(5 * time.Second), ActivityType: "Searched", Seq: 1},
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 2)
	assert.Equal(t, []string{"", ""}, products(attributed))
}

func TestAttributeSortsByTimestampWithinSession(t *testing.T) {
	events := []loader.Event{
		click("s1", 30, 0),
		productFacet("s1", "A", 0, 1),
		click("s1", 10, 2),
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 3)
	// Timeline order: facet(A) at 0, click at 10, click at 30.
	assert.Equal(t, "A", attributed[0].FacetValue)
	assert.Equal(t, 10*time.Second, attributed[1].Timestamp.Sub(base))
	assert.Equal(t, 30*time.Second, attributed[2].Timestamp.Sub(base))
}

func TestAttributeEqualTimestampsKeepInputOrder(t *testing.T) {
	// All three share one timestamp; the stable sort must preserve input
	// order, so the click inherits A, not B.
	events := []loader.Event{
		productFacet("s1", "A", 0, 0),
		click("s1", 0, 1),
		productFacet("s1", "B", 0, 2),
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 3)
	assert.Equal(t, []string{"A", "A", "B"}, products(attributed))
}

func TestAttributeEmptyFacetValueDoesNotSupplyProduct(t *testing.T) {
	events := []loader.Event{
		productFacet("s1", "", 0, 0),
		productFacet("s1", "A", 10, 1),
		click("s1", 20, 2),
	}

	attributed := Attribute(events, testCfg)
	assert.Equal(t, []string{"A", "A", "A"}, products(attributed))
}

func TestAttributeNonProductFacetIgnored(t *testing.T) {
	events := []loader.Event{
		{SessionID: "s1", Timestamp: base, ActivityType: "Applied Facet", FacetType: "Category", FacetValue: "Docs", Seq: 0},
		click("s1", 10, 1),
	}

	attributed := Attribute(events, testCfg)
	assert.Equal(t, []string{"", ""}, products(attributed))
}

func TestAttributeSessionsAreIndependent(t *testing.T) {
	events := []loader.Event{
		productFacet("s1", "A", 0, 0),
		click("s2", 10, 1),
	}

	attributed := Attribute(events, testCfg)
	require.Len(t, attributed, 2)
	// Output ordered by session id.
	assert.Equal(t, "s1", attributed[0].SessionID)
	assert.Equal(t, "A", attributed[0].Product)
	assert.Equal(t, "s2", attributed[1].SessionID)
	assert.Equal(t, "", attributed[1].Product)
}

func TestPartition(t *testing.T) {
	events := []loader.Event{
		productFacet("s1", "A", 0, 0),
		click("s1", 10, 1),
		click("s2", 0, 2), // no product anywhere in s2
		{SessionID: "s3", Timestamp: base, ActivityType: "Searched", Seq: 3},
	}

	valid, clicks, orphans := Partition(Attribute(events, testCfg), testCfg)

	require.Len(t, valid, 2)
	assert.Equal(t, "A", valid[0].Product)
	assert.Equal(t, "A", valid[1].Product)

	require.Len(t, clicks, 1)
	assert.Equal(t, "s1", clicks[0].SessionID)

	require.Len(t, orphans, 1)
	assert.Equal(t, "s2", orphans[0].SessionID)
	assert.Equal(t, "Clicked Search Result", orphans[0].ActivityType)
}

func TestPartitionNonClickRowsWithoutProductAreSilent(t *testing.T) {
	events := []loader.Event{
		{SessionID: "s1", Timestamp: base, ActivityType: "Searched", Seq: 0},
	}

	valid, clicks, orphans := Partition(Attribute(events, testCfg), testCfg)
	assert.Empty(t, valid)
	assert.Empty(t, clicks)
	assert.Empty(t, orphans)
}
