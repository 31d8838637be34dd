package peer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LinkQualityCollector exports per-peer link-quality metrics on demand
// from a Manager's live registry, following the describe-once/collect-
// on-scrape custom-collector shape rather than registering a fixed set of
// gauges up front (the peer set changes as devices connect/disconnect).
type LinkQualityCollector struct {
	mgr *Manager

	txQuality *prometheus.Desc
	rxQuality *prometheus.Desc
	rtt       *prometheus.Desc
	failures  *prometheus.Desc
	linkUp    *prometheus.Desc
}

// NewLinkQualityCollector builds a collector backed by mgr. Register it
// with a prometheus.Registry to expose /metrics.
func NewLinkQualityCollector(mgr *Manager) *LinkQualityCollector {
	labels := []string{"handle", "peer"}
	return &LinkQualityCollector{
		mgr:       mgr,
		txQuality: prometheus.NewDesc("arsdk_peer_tx_quality_percent", "Fraction of sent commands acknowledged within timeout, as a percentage.", labels, nil),
		rxQuality: prometheus.NewDesc("arsdk_peer_rx_quality_percent", "Fraction of expected sequence numbers received in order, as a percentage.", labels, nil),
		rtt:       prometheus.NewDesc("arsdk_peer_rtt_seconds", "Most recent ping/pong round-trip time.", labels, nil),
		failures:  prometheus.NewDesc("arsdk_peer_failures_total", "Cumulative ack-timeout and ping failures observed for this peer.", labels, nil),
		linkUp:    prometheus.NewDesc("arsdk_peer_link_up", "1 if link status is OK, 0 otherwise.", labels, nil),
	}
}

func (c *LinkQualityCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.txQuality
	descs <- c.rxQuality
	descs <- c.rtt
	descs <- c.failures
	descs <- c.linkUp
}

func (c *LinkQualityCollector) Collect(metrics chan<- prometheus.Metric) {
	for _, p := range c.mgr.Snapshot() {
		handle := p.Handle.String()
		metrics <- prometheus.MustNewConstMetric(c.txQuality, prometheus.GaugeValue, p.TxQualityPct, handle, p.Name)
		metrics <- prometheus.MustNewConstMetric(c.rxQuality, prometheus.GaugeValue, p.RxQualityPct, handle, p.Name)
		metrics <- prometheus.MustNewConstMetric(c.rtt, prometheus.GaugeValue, p.RTT.Seconds(), handle, p.Name)
		metrics <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(p.Failures), handle, p.Name)
		up := 0.0
		if p.LinkStatus.String() == "OK" {
			up = 1.0
		}
		metrics <- prometheus.MustNewConstMetric(c.linkUp, prometheus.GaugeValue, up, handle, p.Name)
	}
}
