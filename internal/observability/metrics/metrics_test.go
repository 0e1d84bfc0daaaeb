package metrics

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeCounter struct {
	count int
	err   error
}

func (f fakeCounter) Count(ctx context.Context) (int, error) {
	return f.count, f.err
}

func TestQueryCount(t *testing.T) {
	if got := queryCount(fakeCounter{count: 4}, nil); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}

	var buf bytes.Buffer
	got := queryCount(fakeCounter{err: errors.New("db down")}, log.New(&buf, "", 0))
	if got != 0 {
		t.Fatalf("expected 0 on error, got %v", got)
	}
	if !strings.Contains(buf.String(), "db down") {
		t.Fatalf("expected error to be logged, got %q", buf.String())
	}
}

func TestObserveHelpersCount(t *testing.T) {
	Init(fakeCounter{count: 1}, nil)

	before := counterValue(t, metricPrefix+"optimize_total", "result", ResultSuccess)
	ObserveOptimize(Result(nil), 10*time.Millisecond)
	after := counterValue(t, metricPrefix+"optimize_total", "result", ResultSuccess)
	if after-before != 1 {
		t.Fatalf("expected optimize counter to grow by 1, got %v", after-before)
	}

	AddPlannedSavings("peak_load", 90)
	AddPlannedSavings("peak_load", -5)
	if got := counterValue(t, metricPrefix+"planned_savings_kwh_total", "lever", "peak_load"); got != 90 {
		t.Fatalf("expected 90 kWh planned, got %v", got)
	}

	if Result(errors.New("boom")) != ResultError {
		t.Fatalf("expected error label")
	}
}

func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
