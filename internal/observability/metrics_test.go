package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndTextfile(t *testing.T) {
	m := New()
	m.ObserveItem("describe", "succeeded", time.Second)
	m.ObserveItem("describe", "succeeded", 2*time.Second)
	m.IncRateLimited("describe")
	m.IncRun("describe", "completed")
	m.ObserveLoad(3, 1, 50*time.Millisecond)

	if got := testutil.ToFloat64(m.items.WithLabelValues("describe", "succeeded")); got != 2 {
		t.Fatalf("items=%v", got)
	}
	if got := testutil.ToFloat64(m.triples.WithLabelValues("skipped")); got != 1 {
		t.Fatalf("skipped=%v", got)
	}

	path := filepath.Join(t.TempDir(), "kgbuild.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `kg_enrich_rate_limited_total{stage="describe"} 1`) {
		t.Fatalf("textfile missing counter:\n%s", b)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveItem("extract", "failed", time.Second)
	m.IncRateLimited("extract")
	m.IncRun("extract", "aborted")
	m.SetPending("extract", 3)
	m.ObserveLoad(1, 0, time.Millisecond)
	if err := m.WriteTextfile("ignored.prom"); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
	if m.Registry() != nil {
		t.Fatalf("nil registry expected")
	}
}
