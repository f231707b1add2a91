package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_rounds_started_total",
			Help: "Rounds opened, by session kind",
		},
		[]string{"kind"},
	)
	RoundsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_rounds_closed_total",
			Help: "Rounds closed, by session kind and whether the deadline fired",
		},
		[]string{"kind", "reason"},
	)
	ForcedSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_forced_skips_total",
			Help: "Participants skipped by the round deadline",
		},
		[]string{"kind"},
	)
	MovesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_moves_total",
			Help: "Moves recorded, by validator outcome",
		},
		[]string{"kind", "result"},
	)
	SessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_ended_total",
			Help: "Sessions that ran out of active participants",
		},
		[]string{"kind"},
	)
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_events_dropped_total",
			Help: "Broadcasts not delivered because a subscriber buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(RoundsStarted)
	prometheus.MustRegister(RoundsClosed)
	prometheus.MustRegister(ForcedSkips)
	prometheus.MustRegister(MovesRecorded)
	prometheus.MustRegister(SessionsEnded)
	prometheus.MustRegister(EventsDropped)
}
