package server

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-lot/internal/parking"
)

const namespace = "parking_lot"

// OccupancyCollector exposes the lot's current state at scrape time. It
// builds one Report per scrape from a single snapshot so the gauges agree
// with each other. Unclassified plates are not logged here.
// Colors and vehicle types are user input; label values are forced to valid
// UTF-8 because client_golang rejects anything else.
type OccupancyCollector struct {
	useCase parking.UseCase
	logger  *slog.Logger

	capacity  *prometheus.Desc
	occupied  *prometheus.Desc
	available *prometheus.Desc
	byType    *prometheus.Desc
	byColor   *prometheus.Desc
}

var _ prometheus.Collector = (*OccupancyCollector)(nil)

func NewOccupancyCollector(useCase parking.UseCase, logger *slog.Logger) *OccupancyCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &OccupancyCollector{
		useCase: useCase,
		logger:  logger,
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "capacity_slots"),
			"Total number of slots in the parking lot.",
			nil, nil,
		),
		occupied: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "occupied_slots"),
			"Number of occupied slots.",
			nil, nil,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "available_slots"),
			"Number of free slots.",
			nil, nil,
		),
		byType: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "vehicles_by_type"),
			"Parked vehicles grouped by vehicle type.",
			[]string{"vehicle_type"}, nil,
		),
		byColor: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "vehicles_by_color"),
			"Parked vehicles grouped by color.",
			[]string{"color"}, nil,
		),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.occupied
	ch <- c.available
	ch <- c.byType
	ch <- c.byColor
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	report := parking.BuildReport(c.useCase.Slots(context.Background()))

	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(report.Capacity))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(report.Occupied))
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(report.Available))
	c.collectGroups(ch, c.byType, report.VehicleTypes)
	c.collectGroups(ch, c.byColor, report.Colors)
}

// collectGroups emits one gauge per group. Keys that only differ in their
// invalid bytes collapse to one label value and are summed.
func (c *OccupancyCollector) collectGroups(ch chan<- prometheus.Metric, desc *prometheus.Desc, groups []parking.GroupCount) {
	merged := make([]parking.GroupCount, 0, len(groups))
	index := make(map[string]int, len(groups))
	for _, group := range groups {
		key := labelValue(group.Key)
		if i, ok := index[key]; ok {
			merged[i].Count += group.Count
			continue
		}
		index[key] = len(merged)
		merged = append(merged, parking.GroupCount{Key: key, Count: group.Count})
	}

	for _, group := range merged {
		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, float64(group.Count), group.Key)
		if err != nil {
			c.logger.Warn("skipping occupancy metric",
				slog.String("label", group.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		ch <- m
	}
}

func labelValue(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewMetricsRegistry builds the registry served on /metrics. A private
// registry keeps tests free of duplicate-registration panics.
func NewMetricsRegistry(useCase parking.UseCase, httpMetrics *HTTPMetrics, logger *slog.Logger) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewOccupancyCollector(useCase, logger),
		httpMetrics.requests,
		httpMetrics.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
