package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/itohio/thermod/pkg/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ engine.Observer = (*Prom)(nil)

// Prom records scheduler events as prometheus metrics.
type Prom struct {
	cycles   prometheus.Counter
	aborted  prometheus.Counter
	results  *prometheus.CounterVec
	duration prometheus.Histogram
	ready    prometheus.Gauge
}

// New creates the metrics of module and registers them with reg.
func New(reg prometheus.Registerer, module int) (*Prom, error) {
	labels := prometheus.Labels{"module": moduleLabel(module)}

	p := &Prom{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "thermod_cycles_total",
			Help:        "Sampling cycles that published results.",
			ConstLabels: labels,
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "thermod_cycle_aborted_total",
			Help:        "Sampling cycles skipped because of a transport fault.",
			ConstLabels: labels,
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "thermod_results_total",
			Help:        "Channel results by state.",
			ConstLabels: labels,
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "thermod_cycle_duration_seconds",
			Help:        "Time from acquisition start to the last published result.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "thermod_ready",
			Help:        "1 once the module has received its complete configuration.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{p.cycles, p.aborted, p.results, p.duration, p.ready} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// Export every state, including those not seen yet
	for _, s := range engine.States() {
		p.results.WithLabelValues(s.String())
	}

	return p, nil
}

func (p *Prom) Ready() {
	p.ready.Set(1)
}

func (p *Prom) CycleDone(elapsed time.Duration) {
	p.cycles.Inc()
	p.duration.Observe(elapsed.Seconds())
}

func (p *Prom) CycleAborted() {
	p.aborted.Inc()
}

func (p *Prom) Result(s engine.State) {
	p.results.WithLabelValues(s.String()).Inc()
}

// Handler serves g under /metrics and a liveness probe under /healthz.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve exposes Handler(g) on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Metrics server shutdown: %v", err)
		}
	}()

	log.Printf("Serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func moduleLabel(module int) string {
	return strconv.Itoa(module)
}
