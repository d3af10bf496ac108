package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "slot-sweeper"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddRemoved(job, 42)
	metrics.AddRemoved(job, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	expectCounter(t, mfs, "storefront_job_success_total", 1, "job", job)
	expectCounter(t, mfs, "storefront_job_failure_total", 1, "job", job)
	expectCounter(t, mfs, "storefront_job_removed_rows_total", 42, "job", job)

	if got, err := fetchHistogramSum(mfs, "storefront_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestShopAPIMetricsLabelsOperationAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewShopAPIMetrics(reg)
	metrics.Observe("get_cart", OutcomeSuccess, 10*time.Millisecond)
	metrics.Observe("get_cart", OutcomeSuccess, 20*time.Millisecond)
	metrics.Observe("create_customer", OutcomeRejected, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	expectCounter(t, mfs, "shop_api_requests_total", 2, "operation", "get_cart", "outcome", OutcomeSuccess)
	expectCounter(t, mfs, "shop_api_requests_total", 1, "operation", "create_customer", "outcome", OutcomeRejected)
	if got, err := fetchHistogramSum(mfs, "shop_api_request_duration_seconds", "operation", "get_cart"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.029 {
		t.Fatalf("expected summed latency ~0.03s, got %f", got)
	}
}

func TestCartMetricsAndNilRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)
	metrics.IncMutation("add", OutcomeSuccess)
	metrics.IncMutation("add", OutcomeRejected)
	metrics.IncMutation("", OutcomeError)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	expectCounter(t, mfs, "cart_mutations_total", 1, "operation", "add", "outcome", OutcomeRejected)
	expectCounter(t, mfs, "cart_mutations_total", 1, "operation", "unknown", "outcome", OutcomeError)

	var nilCart *CartMetrics
	nilCart.IncMutation("add", OutcomeSuccess)
	NewShopAPIMetrics(nil).Observe("x", OutcomeSuccess, time.Second)
	NewCronJobMetrics(nil).IncSuccess("x")
}

func expectCounter(t *testing.T, mfs []*dto.MetricFamily, name string, want float64, labels ...string) {
	t.Helper()
	got, err := fetchCounterValue(mfs, name, labels...)
	if err != nil {
		t.Fatalf("fetch %s: %v", name, err)
	}
	if got != want {
		t.Fatalf("expected %s=%v, got %v", name, want, got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels ...string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels...) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels ...string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels...) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, kv ...string) bool {
	for i := 0; i+1 < len(kv); i += 2 {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == kv[i] && pair.GetValue() == kv[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
