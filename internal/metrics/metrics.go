package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	LikingActions       *prometheus.CounterVec
	MatchesCreated      prometheus.Counter
	ProfileMatchRuns    *prometheus.CounterVec
	ProfileCandidates   prometheus.Histogram
	FriendRequestEvents *prometheus.CounterVec
	SocketConnections   prometheus.Gauge
	SocketDropped       prometheus.Counter
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		LikingActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "destined_liking_actions_total",
			Help: "Like and dislike operations by result",
		}, []string{"action", "result"}),

		MatchesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "destined_matches_created_total",
			Help: "Likes that completed a mutual match",
		}),

		ProfileMatchRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "destined_profile_match_runs_total",
			Help: "Profile match computations by result",
		}, []string{"result"}),

		ProfileCandidates: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "destined_profile_match_candidates",
			Help:    "Scored candidates kept per profile match run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),

		FriendRequestEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "destined_friend_request_events_total",
			Help: "Friend request socket events by result",
		}, []string{"event", "result"}),

		SocketConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "destined_socket_connections",
			Help: "Live WebSocket connections",
		}),

		SocketDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "destined_socket_frames_dropped_total",
			Help: "Push frames dropped because a connection's send buffer was full",
		}),
	}
}

// Result turns an operation error into a label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func (m *Metrics) ObserveLiking(action string, err error, matched bool) {
	if m == nil {
		return
	}
	m.LikingActions.WithLabelValues(action, Result(err)).Inc()
	if matched {
		m.MatchesCreated.Inc()
	}
}

func (m *Metrics) ObserveProfileMatch(candidates int, err error) {
	if m == nil {
		return
	}
	m.ProfileMatchRuns.WithLabelValues(Result(err)).Inc()
	if err == nil {
		m.ProfileCandidates.Observe(float64(candidates))
	}
}

func (m *Metrics) ObserveFriendEvent(event string, err error) {
	if m == nil {
		return
	}
	m.FriendRequestEvents.WithLabelValues(event, Result(err)).Inc()
}

func (m *Metrics) SocketOpened() {
	if m != nil {
		m.SocketConnections.Inc()
	}
}

func (m *Metrics) SocketClosed() {
	if m != nil {
		m.SocketConnections.Dec()
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.SocketDropped.Inc()
	}
}
