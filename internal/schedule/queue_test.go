package schedule

import (
	"context"
	"testing"
	"time"
)

func TestRefreshQueue_OrderedByDueTime(t *testing.T) {
	q := NewRefreshQueue()
	now := time.Now()

	// Schedule in reverse order
	q.Schedule("mossel-bay", now.Add(30*time.Millisecond))
	q.Schedule("jbay", now.Add(10*time.Millisecond))
	q.Schedule("durban", now.Add(20*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []string
	for i := 0; i < 3; i++ {
		regionID, ok := q.Next(ctx)
		if !ok {
			t.Fatalf("Next returned false after %d pops", i)
		}
		got = append(got, regionID)
	}

	want := []string{"jbay", "durban", "mossel-bay"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pop %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRefreshQueue_RescheduleReplaces(t *testing.T) {
	q := NewRefreshQueue()
	now := time.Now()

	q.Schedule("jbay", now.Add(1*time.Hour))
	q.Schedule("jbay", now.Add(10*time.Millisecond))

	if q.Len() != 1 {
		t.Fatalf("Len = %d after reschedule, want 1", q.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	regionID, ok := q.Next(ctx)
	if !ok || regionID != "jbay" {
		t.Fatalf("Next = %q, %v", regionID, ok)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("reschedule to an earlier time was not honored")
	}
}

func TestRefreshQueue_Cancel(t *testing.T) {
	q := NewRefreshQueue()
	q.Schedule("jbay", time.Now().Add(10*time.Millisecond))

	if !q.Cancel("jbay") {
		t.Error("Cancel returned false for a pending region")
	}
	if q.Cancel("jbay") {
		t.Error("Cancel returned true for an already-removed region")
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after cancel, want 0", q.Len())
	}
}

func TestRefreshQueue_NextHonorsCancellation(t *testing.T) {
	q := NewRefreshQueue()
	q.Schedule("jbay", time.Now().Add(1*time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Next(ctx)
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("Next should return false on context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after context cancellation")
	}
}

func TestRefreshQueue_WakesOnEarlierSchedule(t *testing.T) {
	q := NewRefreshQueue()
	q.Schedule("durban", time.Now().Add(1*time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan string, 1)
	go func() {
		regionID, _ := q.Next(ctx)
		got <- regionID
	}()

	time.Sleep(20 * time.Millisecond)
	q.Schedule("jbay", time.Now())

	select {
	case regionID := <-got:
		if regionID != "jbay" {
			t.Errorf("Next = %s, want jbay", regionID)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken by an earlier schedule")
	}
}
