// Package metrics exposes recorded flights as Prometheus metrics.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/waterrocket/simulator/pkg/core"
)

// Metrics holds the collectors updated for every recorded run.
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	separations     prometheus.Counter
	apogeeGauge     prometheus.Gauge
	apogeeTimeGauge prometheus.Gauge
	flightTimeGauge prometheus.Gauge
	peakThrustGauge *prometheus.GaugeVec
	apogeeHistogram prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waterrocket_runs_total",
			Help: "Recorded runs by outcome.",
		}, []string{"outcome"}),
		separations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waterrocket_stage_separations_total",
			Help: "Stage separations across all recorded runs.",
		}),
		apogeeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waterrocket_last_apogee_meters",
			Help: "Peak height of the most recent run.",
		}),
		apogeeTimeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waterrocket_last_apogee_time_seconds",
			Help: "Time to peak of the most recent run.",
		}),
		flightTimeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waterrocket_last_flight_time_seconds",
			Help: "Simulated duration of the most recent run.",
		}),
		peakThrustGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "waterrocket_last_peak_thrust_newton",
			Help: "Largest thrust per stage in the most recent run.",
		}, []string{"stage"}),
		apogeeHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "waterrocket_apogee_meters",
			Help:    "Distribution of peak heights.",
			Buckets: []float64{5, 10, 25, 50, 100, 150, 200, 300, 500},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.runsTotal, m.separations,
		m.apogeeGauge, m.apogeeTimeGauge, m.flightTimeGauge,
		m.peakThrustGauge, m.apogeeHistogram,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	return m, nil
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(run *core.Run) {
	outcome := "failure"
	if run.Result.Success {
		outcome = "success"
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.separations.Add(float64(len(run.Result.Events)))

	m.apogeeGauge.Set(run.Result.MaxHeight)
	m.apogeeTimeGauge.Set(run.Result.MaxHeightTime)
	m.flightTimeGauge.Set(run.Result.TotalElapsedTime)
	m.apogeeHistogram.Observe(run.Result.MaxHeight)

	var peak [core.StageCount]float64
	for _, s := range run.Result.Trajectory {
		if i := s.ActiveStage - 1; i >= 0 && i < core.StageCount && s.Thrust > peak[i] {
			peak[i] = s.Thrust
		}
	}
	for i, thrust := range peak {
		m.peakThrustGauge.WithLabelValues(strconv.Itoa(i + 1)).Set(thrust)
	}
}
