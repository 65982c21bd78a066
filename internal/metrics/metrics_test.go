package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementResolution("parsed")
	m.IncrementResolution("parsed")
	m.IncrementResolution("fallback")
	m.IncrementModelOutput(OutputRepaired)
	m.IncrementSumMismatch()
	m.IncrementBalanceRead(CacheHit)
	m.ObserveGenerateLatency("ok", 150*time.Millisecond)
	m.ObserveRPC("/splitledger.v1.ExpenseService/GetBalances", "ok", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues("parsed")); got != 2 {
		t.Errorf("parsed resolutions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues("fallback")); got != 1 {
		t.Errorf("fallback resolutions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelOutput.WithLabelValues(OutputRepaired)); got != 1 {
		t.Errorf("repaired outputs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SumMismatches); got != 1 {
		t.Errorf("sum mismatches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BalanceReads.WithLabelValues(CacheHit)); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.GenerateLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.RPCDuration); got != 1 {
		t.Errorf("rpc series = %d, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.IncrementResolution("parsed")
	m.ObserveGenerateLatency("ok", time.Second)
	m.IncrementModelOutput(OutputClean)
	m.IncrementSumMismatch()
	m.IncrementBalanceRead(CacheMiss)
	m.ObserveRPC("/p", "ok", time.Millisecond)
}
