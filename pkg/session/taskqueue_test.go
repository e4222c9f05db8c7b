package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTaskQueueFIFO(t *testing.T) {
	tq := NewTaskQueue()
	var ran []string
	tq.Enqueue("one", func() { ran = append(ran, "one") })
	tq.Enqueue("two", func() { ran = append(ran, "two") })

	tq.Run()
	if diff := cmp.Diff([]string{"one"}, ran); diff != "" {
		t.Fatalf("after first run (-want +got):\n%s", diff)
	}

	tq.Run()
	if diff := cmp.Diff([]string{"one", "two"}, ran); diff != "" {
		t.Fatalf("after second run (-want +got):\n%s", diff)
	}

	// Draining an empty queue is a no-op.
	tq.Run()
	if len(ran) != 2 {
		t.Fatalf("empty run invoked something: %v", ran)
	}
}

func TestTaskQueueRunNamed(t *testing.T) {
	tq := NewTaskQueue()
	var ran []string
	tq.Enqueue("answer", func() { ran = append(ran, "a1") })
	tq.Enqueue("submit-all", func() { ran = append(ran, "s1") })
	tq.Enqueue("answer", func() { ran = append(ran, "a2") })

	tq.RunNamed("submit-all")
	if diff := cmp.Diff([]string{"s1"}, ran); diff != "" {
		t.Fatalf("named run (-want +got):\n%s", diff)
	}

	// Remaining tasks keep their relative order.
	tq.Run()
	tq.Run()
	if diff := cmp.Diff([]string{"s1", "a1", "a2"}, ran); diff != "" {
		t.Fatalf("drain (-want +got):\n%s", diff)
	}

	tq.RunNamed("missing")
	if len(ran) != 3 {
		t.Fatalf("missing name invoked something: %v", ran)
	}
}

func TestTaskQueueClear(t *testing.T) {
	tq := NewTaskQueue()
	var ran []string
	tq.Enqueue("answer", func() { ran = append(ran, "a1") })
	tq.Enqueue("submit-all", func() { ran = append(ran, "s1") })
	tq.Enqueue("submit-all", func() { ran = append(ran, "s2") })

	tq.Clear("submit-all")
	if got := tq.Len(); got != 1 {
		t.Fatalf("len after named clear = %d, want 1", got)
	}
	tq.Run()
	if diff := cmp.Diff([]string{"a1"}, ran); diff != "" {
		t.Fatalf("after clear (-want +got):\n%s", diff)
	}

	tq.Enqueue("answer", func() { ran = append(ran, "a2") })
	tq.Clear()
	if got := tq.Len(); got != 0 {
		t.Fatalf("len after full clear = %d, want 0", got)
	}
}
