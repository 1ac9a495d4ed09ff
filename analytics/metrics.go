package analytics

import "github.com/ethereum/go-ethereum/metrics"

var (
	analyticsTimer         = metrics.NewRegisteredTimer("miner/analytics/duration", nil)
	analyticsProgramsGauge = metrics.NewRegisteredGauge("miner/analytics/programs", nil)
	analyticsInvalidGauge  = metrics.NewRegisteredGauge("miner/analytics/invalid", nil)
)
