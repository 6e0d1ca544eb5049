package app

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_GrowsToMax(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 400*time.Millisecond)

	want := []time.Duration{100, 200, 400, 400}
	for i, w := range want {
		base := w * time.Millisecond
		d := b.Next()
		lo, hi := time.Duration(float64(base)*0.8), time.Duration(float64(base)*1.2)
		if d < lo || d > hi {
			t.Errorf("step %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}
	if b.Current() != 400*time.Millisecond {
		t.Errorf("Current() = %v, want capped at 400ms", b.Current())
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	b.Next()
	b.Next()
	b.Reset()
	if b.Current() != DefaultBackoffInitial {
		t.Errorf("Current() after Reset = %v, want %v", b.Current(), DefaultBackoffInitial)
	}
}

func TestBackoff_SleepCanceled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Sleep(ctx); err != context.Canceled {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancel")
	}
}

func TestBackoff_SleepElapses(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)
	if err := b.Sleep(context.Background()); err != nil {
		t.Errorf("Sleep() = %v, want nil", err)
	}
}
