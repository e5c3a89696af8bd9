package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de conversa
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concierge_turns_total",
		Help: "Total de respostas entregues pelo assistente",
	}, []string{"topic"})

	SubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concierge_submissions_rejected_total",
		Help: "Total de envios ignorados ou rejeitados",
	}, []string{"reason"})

	ReplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "concierge_reply_latency_seconds",
		Help:    "Tempo entre o envio do usuário e a resposta do assistente",
		Buckets: prometheus.DefBuckets,
	})

	StaleCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concierge_stale_callbacks_total",
		Help: "Callbacks descartados por sessão encerrada ou turno substituído",
	}, []string{"source"})

	// Métricas de sessão e voz
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concierge_active_sessions",
		Help: "Número de sessões de diálogo ativas",
	})

	VoiceCapturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concierge_voice_captures_total",
		Help: "Total de capturas de voz por resultado",
	}, []string{"outcome"})

	SideEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concierge_side_events_total",
		Help: "Total de eventos enviados ao host",
	}, []string{"kind"})
)
