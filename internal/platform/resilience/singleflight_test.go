package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlightCollapsesConcurrentCalls(t *testing.T) {
	var flight SingleFlight
	var executions atomic.Int32

	start := make(chan struct{})
	release := make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	var shared atomic.Int32

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := flight.Do("fixtures:2026-03-14", func() (any, error) {
				executions.Add(1)
				<-release
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if val.(int) == 42 {
				shared.Add(1)
			}
		}()
	}

	close(start)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Fatalf("expected one execution, got %d", got)
	}
	if got := shared.Load(); got != callers {
		t.Fatalf("expected %d callers to see the result, got %d", callers, got)
	}
}

func TestSingleFlightIndependentKeys(t *testing.T) {
	var flight SingleFlight
	var executions atomic.Int32

	var wg sync.WaitGroup
	for _, key := range []string{"fixtures:2026-03-14", "fixtures:2026-03-15"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _, _ = flight.Do(key, func() (any, error) {
				executions.Add(1)
				return key, nil
			})
		}(key)
	}
	wg.Wait()

	if got := executions.Load(); got != 2 {
		t.Fatalf("expected two executions for distinct keys, got %d", got)
	}
}

func TestSingleFlightRunsAgainAfterCompletion(t *testing.T) {
	var flight SingleFlight
	var executions atomic.Int32

	for i := 0; i < 3; i++ {
		_, _, joined := flight.Do("fixtures:2026-03-14", func() (any, error) {
			executions.Add(1)
			return nil, nil
		})
		if joined {
			t.Fatalf("sequential call %d should not join a flight", i)
		}
	}

	if got := executions.Load(); got != 3 {
		t.Fatalf("expected three sequential executions, got %d", got)
	}
}
