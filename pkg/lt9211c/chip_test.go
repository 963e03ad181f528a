package lt9211c

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c/lt9211ctest"
)

// sleepRecorder replaces wall-clock sleeps and keeps what was asked for.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.sleeps {
		sum += d
	}
	return sum
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sleeps {
		if v == d {
			n++
		}
	}
	return n
}

func newTestChip(t *testing.T) (*Chip, *lt9211ctest.Fake, *sleepRecorder) {
	t.Helper()
	fake := lt9211ctest.New()
	rec := &sleepRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(fake, logger, WithSleeper(rec.sleep)), fake, rec
}

func equalBytes(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestChipID(t *testing.T) {
	chip, fake, _ := newTestChip(t)
	fake.SetBytes(bankSystem, 0x00, 0x21, 0x03, 0xe0)

	id, err := chip.ChipID()
	if err != nil {
		t.Fatalf("ChipID failed: %v", err)
	}
	if id != [3]byte{0x21, 0x03, 0xe0} {
		t.Errorf("Expected id 2103e0, got %x", id)
	}
}

func TestChipCloseDetaches(t *testing.T) {
	chip, fake, _ := newTestChip(t)
	chip.Close()

	if _, err := chip.ChipID(); err != ErrDetached {
		t.Errorf("Expected ErrDetached, got %v", err)
	}
	if fake.TxCount() != 0 {
		t.Errorf("Expected no bus traffic after Close, got %d transactions", fake.TxCount())
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := SleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("SleepContext did not return promptly on a cancelled context")
	}
}
