package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuctionMetrics counts bid outcomes and auction closings.
type AuctionMetrics struct {
	bids      *prometheus.CounterVec
	finalized *prometheus.CounterVec
}

func NewAuctionMetrics(reg prometheus.Registerer) *AuctionMetrics {
	if reg == nil {
		return &AuctionMetrics{}
	}
	bids := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_placed_total",
		Help:      "Bids recorded, by resulting status.",
	}, []string{"status"})
	finalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auctions_finalized_total",
		Help:      "Auctions closed by the finalization job, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(bids, finalized)
	return &AuctionMetrics{bids: bids, finalized: finalized}
}

func (m *AuctionMetrics) IncBid(status string) {
	if m == nil || m.bids == nil {
		return
	}
	m.bids.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncFinalized records one closed auction as sold or unsold.
func (m *AuctionMetrics) IncFinalized(sold bool) {
	if m == nil || m.finalized == nil {
		return
	}
	outcome := "unsold"
	if sold {
		outcome = "sold"
	}
	m.finalized.WithLabelValues(outcome).Inc()
}
