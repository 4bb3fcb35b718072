package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	messagesCheckedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "antispam_messages_checked_total",
			Help: "Total number of messages run through the classifier",
		},
	)

	spamDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antispam_spam_detected_total",
			Help: "Total number of messages classified as spam",
		},
		[]string{"source"},
	)

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antispam_moderation_actions_total",
			Help: "Total number of moderation actions requested from the platform",
		},
		[]string{"action"},
	)

	registerOnce sync.Once
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(messagesCheckedTotal)
		prometheus.MustRegister(spamDetectedTotal)
		prometheus.MustRegister(moderationActionsTotal)
	})
}

func RecordMessageChecked() {
	messagesCheckedTotal.Inc()
}

// RecordSpamDetection counts a positive verdict; source is "content" for
// the stateless checks and "repeat" for the history-based one.
func RecordSpamDetection(source string) {
	spamDetectedTotal.WithLabelValues(source).Inc()
}

func RecordModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}

// Server exposes the metrics endpoint as a lifecycle component.
type Server struct {
	addr string
	srv  *http.Server
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start(ctx context.Context) error {
	_ = ctx
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
