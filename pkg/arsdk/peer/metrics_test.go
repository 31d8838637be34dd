package peer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

func TestLinkQualityCollectorExportsRegisteredPeers(t *testing.T) {
	m := NewManager(nil)
	p, err := m.Register("drone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	m.SetLinkStatus(p.Handle, transport.LinkOK)
	m.UpdateStats(p.Handle, 95.0, 90.0, 0, 1)

	c := NewLinkQualityCollector(m)
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register collector: %v", err)
	}

	count := testutil.CollectAndCount(c)
	if count != 5 {
		t.Errorf("got %d metric samples, want 5 (one peer x five metrics)", count)
	}
}

func TestLinkQualityCollectorEmptyRegistry(t *testing.T) {
	m := NewManager(nil)
	c := NewLinkQualityCollector(m)
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Errorf("expected no samples with no peers registered, got %d", n)
	}
}
