package engine

import "github.com/rs/zerolog"

// SearchStats collects node counts and cutoffs for one search request.
type SearchStats struct {
	Nodes            uint64
	QuiescenceNodes  uint64
	TTHits           uint64
	BetaCutoffs      uint64
	QStandPatCutoffs uint64
	QBetaCutoffs     uint64
}

func (s SearchStats) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("nodes", s.Nodes).
		Uint64("qnodes", s.QuiescenceNodes).
		Uint64("tt_hits", s.TTHits).
		Uint64("beta_cutoffs", s.BetaCutoffs).
		Uint64("q_standpat", s.QStandPatCutoffs).
		Uint64("q_beta", s.QBetaCutoffs)
}
