package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := crawlerPagesTotal
	Init()

	require.NotNil(t, first)
	require.Same(t, first, crawlerPagesTotal)
	require.NotNil(t, marketSourceOutcomesTotal)
	require.NotNil(t, httpRequestDurationSeconds)
}

func TestObservePage(t *testing.T) {
	before := testutil.ToFloat64(pageCounter(t, PageStatusSkipped))
	ObservePage(PageStatusSkipped)
	ObservePage(PageStatusSkipped)
	require.InDelta(t, before+2, testutil.ToFloat64(pageCounter(t, PageStatusSkipped)), 0.0001)
}

func TestObserveMarketSource(t *testing.T) {
	Init()
	hit := marketSourceOutcomesTotal.WithLabelValues("population", "test-source", SourceOutcomeHit)
	miss := marketSourceOutcomesTotal.WithLabelValues("population", "test-source", SourceOutcomeMiss)
	hitBefore := testutil.ToFloat64(hit)
	missBefore := testutil.ToFloat64(miss)

	ObserveMarketSource("population", "test-source", true)
	ObserveMarketSource("population", "test-source", false)
	ObserveMarketSource("population", "test-source", false)

	require.InDelta(t, hitBefore+1, testutil.ToFloat64(hit), 0.0001)
	require.InDelta(t, missBefore+2, testutil.ToFloat64(miss), 0.0001)
}

func TestObserveArchive(t *testing.T) {
	Init()
	okCounter := archiveWritesTotal.WithLabelValues("blob", "ok")
	errCounter := archiveWritesTotal.WithLabelValues("blob", "error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	ObserveArchive("blob", nil)
	ObserveArchive("blob", errors.New("boom"))

	require.InDelta(t, okBefore+1, testutil.ToFloat64(okCounter), 0.0001)
	require.InDelta(t, errBefore+1, testutil.ToFloat64(errCounter), 0.0001)
}

func pageCounter(t *testing.T, status string) prometheus.Counter {
	t.Helper()
	Init()
	return crawlerPagesTotal.WithLabelValues(status)
}
