package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geopolitics_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	gameplayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopolitics_gameplay_requests_total",
			Help: "Gameplay requests by operation and result.",
		},
		[]string{"operation", "result"},
	)

	speechBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geopolitics_tts_audio_bytes_total",
		Help: "Total bytes of synthesized WAV audio.",
	})
)
