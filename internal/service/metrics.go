package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики регистрируются в prometheus.DefaultRegistry и отдаются через /metrics.
var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adventure_sessions_started_total",
		Help: "Total number of play sessions created.",
	})
	choicesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adventure_choices_resolved_total",
		Help: "Choice resolutions partitioned by outcome.",
	}, []string{"outcome"})
	diceRolled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adventure_dice_rolled_total",
		Help: "Total number of server-side dice rolls.",
	})
	playsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adventure_plays_committed_total",
		Help: "Total number of completed plays.",
	})
	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adventure_sessions_swept_total",
		Help: "Total number of abandoned sessions removed by the TTL sweep.",
	})
)

// Outcome labels of choicesResolved.
const (
	outcomeAdvanced      = "advanced"
	outcomeEnding        = "ending"
	outcomeDiceTooLow    = "dice_too_low"
	outcomeDiceNotRolled = "dice_not_rolled"
	outcomeInvalid       = "invalid"
)
