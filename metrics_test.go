package authcore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("Value(MetricLoginSuccess) = %d, want 2", got)
	}
	if got := m.Value(MetricLoginFailure); got != 1 {
		t.Fatalf("Value(MetricLoginFailure) = %d, want 1", got)
	}
	if got := m.Value(MetricLogout); got != 0 {
		t.Fatalf("Value(MetricLogout) = %d, want 0", got)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics counted: %d", got)
	}

	snapshot := m.Snapshot()
	if len(snapshot.Counters) != 0 || len(snapshot.Histograms) != 0 {
		t.Fatalf("disabled snapshot should be empty: %+v", snapshot)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must report disabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("nil Value = %d, want 0", got)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricRefreshSuccess)
	m.Observe(MetricValidateLatency, 3*time.Millisecond)
	m.Observe(MetricValidateLatency, 30*time.Millisecond)
	m.Observe(MetricValidateLatency, 2*time.Second)

	snapshot := m.Snapshot()
	if snapshot.Counters[MetricRefreshSuccess] != 1 {
		t.Fatalf("snapshot counter = %d, want 1", snapshot.Counters[MetricRefreshSuccess])
	}

	buckets := snapshot.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket distribution: %v", buckets)
	}

	// The snapshot is a copy; later increments must not leak into it.
	m.Inc(MetricRefreshSuccess)
	if snapshot.Counters[MetricRefreshSuccess] != 1 {
		t.Fatal("snapshot mutated after the fact")
	}
}

func TestObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricLoginSuccess, time.Millisecond)

	snapshot := m.Snapshot()
	for _, count := range snapshot.Histograms[MetricValidateLatency] {
		if count != 0 {
			t.Fatalf("counter-only ID recorded a latency sample: %v", snapshot.Histograms)
		}
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}

	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const (
		workers = 8
		perG    = 1000
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginSuccess); got != workers*perG {
		t.Fatalf("Value = %d, want %d", got, workers*perG)
	}
}

func TestEngineCountsOperations(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, provider, mailer)

	if _, err := engine.Register(context.Background(), validRegisterInput()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if _, err := engine.Login(context.Background(), "ada", "wrong-password-here"); err == nil {
		t.Fatal("expected login failure")
	}

	snapshot := engine.MetricsSnapshot()
	for id, want := range map[MetricID]uint64{
		MetricRegisterSuccess: 1,
		MetricCodeIssued:      1,
		MetricVerifySuccess:   1,
		MetricLoginFailure:    1,
		MetricLoginSuccess:    0,
	} {
		if got := snapshot.Counters[id]; got != want {
			t.Fatalf("counter %d = %d, want %d", id, got, want)
		}
	}
}
