package health

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCheckAllEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestCheckAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("oracle", func(_ context.Context) Status {
		return Status{Name: "oracle", Healthy: true}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "database" || statuses[1].Name != "oracle" {
		t.Fatalf("statuses out of registration order: %+v", statuses)
	}
}

func TestCheckAllOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("oracle", func(_ context.Context) Status {
		return Status{Name: "oracle", Healthy: false, Detail: "model artifact missing"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with a failing subsystem should report unhealthy")
	}
	if statuses[1].Detail != "model artifact missing" {
		t.Fatalf("Detail = %q, want %q", statuses[1].Detail, "model artifact missing")
	}
}

func TestCheckAllStampsLatencyAndName(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		time.Sleep(20 * time.Millisecond)
		return Status{Healthy: true} // checker left Name empty
	})

	_, statuses := r.CheckAll(context.Background())
	if statuses[0].Name != "database" {
		t.Errorf("Name = %q, want registered name %q", statuses[0].Name, "database")
	}
	if statuses[0].LatencyMS < 15 {
		t.Errorf("LatencyMS = %d, want >= 15", statuses[0].LatencyMS)
	}
}

func TestCheckAllRunsProbesInParallel(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"database", "mongodb", "oracle"} {
		n := name
		r.Register(n, func(_ context.Context) Status {
			time.Sleep(60 * time.Millisecond)
			return Status{Name: n, Healthy: true}
		})
	}

	start := time.Now()
	healthy, statuses := r.CheckAll(context.Background())
	elapsed := time.Since(start)

	if !healthy || len(statuses) != 3 {
		t.Fatalf("healthy=%v statuses=%d, want true/3", healthy, len(statuses))
	}
	// Serial execution would take at least 180ms.
	if elapsed > 150*time.Millisecond {
		t.Errorf("CheckAll took %v, probes appear to run serially", elapsed)
	}
}

func TestRegisterConcurrentWithCheckAll(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("database", func(_ context.Context) Status {
				return Status{Name: "database", Healthy: true}
			})
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
