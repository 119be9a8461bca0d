package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echolag_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "echolag_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	conversationTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolag_conversation_turns_total",
		Help: "Conversation turns by outcome (ok, config_error, transient_error, invalid)",
	}, []string{"persona", "outcome"})

	orderFieldsCompleted = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "echolag_order_fields_completed",
		Help:    "Number of captured order fields after each successful turn",
		Buckets: []float64{0, 1, 2, 3, 4},
	})

	extractorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echolag_extractor_failures_total",
		Help: "State extractions that kept the previous order state because the model or parser failed",
	})

	llmCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echolag_llm_call_duration_seconds",
		Help:    "Model call latencies in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"component", "status"})

	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolag_llm_tokens_total",
		Help: "Model tokens consumed by model and kind (prompt, completion)",
	}, []string{"model", "kind"})

	llmCostUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolag_llm_cost_usd_total",
		Help: "Estimated model spend in USD",
	}, []string{"model"})

	analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolag_session_analyses_total",
		Help: "Session analyses by source (model, cache, fallback)",
	}, []string{"source"})

	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolag_tts_requests_total",
		Help: "Text-to-speech proxy requests by HTTP status",
	}, []string{"status"})
)

// ObserveTurn records a finished conversation turn.
func ObserveTurn(persona, outcome string) {
	conversationTurns.WithLabelValues(persona, outcome).Inc()
}

// ObserveOrderProgress records how many fields were captured after a turn.
func ObserveOrderProgress(completed int) {
	orderFieldsCompleted.Observe(float64(completed))
}

func ObserveExtractorFailure() {
	extractorFailures.Inc()
}

// ObserveLLMCall records the latency of one model call.
func ObserveLLMCall(component string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmCallDuration.WithLabelValues(component, status).Observe(elapsed.Seconds())
}

// ObserveLLMUsage records token usage and estimated cost.
func ObserveLLMUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	if costUSD > 0 {
		llmCostUSD.WithLabelValues(model).Add(costUSD)
	}
}

// ObserveAnalysis records where an analysis report came from.
func ObserveAnalysis(source string) {
	analyses.WithLabelValues(source).Inc()
}

func ObserveTTS(status int) {
	ttsRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Middleware records Prometheus metrics for HTTP requests, keyed by chi route
// pattern to keep label cardinality bounded.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			mw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(mw, r)

			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			httpRequestDuration.
				WithLabelValues(r.Method, path, strconv.Itoa(mw.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush keeps streaming responses (text-to-speech audio) working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
