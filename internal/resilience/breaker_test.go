package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/zcox/messagedb-agent/internal/resilience"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterLimit(t *testing.T) {
	b := resilience.NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := resilience.NewBreaker(2, time.Minute)

	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	_ = b.Execute(func() error { return errBoom })

	// One failure after a success: still closed.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("circuit opened early: %v", err)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := resilience.NewBreaker(1, 10*time.Millisecond)

	_ = b.Execute(func() error { return errBoom })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("error = %v, want open", err)
	}

	time.Sleep(15 * time.Millisecond)

	// Cool-down elapsed: the probe runs and closes the circuit.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("circuit should be closed: %v", err)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := resilience.NewBreaker(1, 10*time.Millisecond)

	_ = b.Execute(func() error { return errBoom })
	time.Sleep(15 * time.Millisecond)

	if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe error = %v", err)
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("error = %v, want reopened circuit", err)
	}
}
