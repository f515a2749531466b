package ring

import "testing"

func TestBuffer_DeliversInOrder(t *testing.T) {
	// GIVEN three published records
	b := New[int](4)
	for _, v := range []int{1, 2, 3} {
		if !b.TryPublish(v) {
			t.Fatalf("TryPublish(%d): got false, want true", v)
		}
	}
	b.Close()

	// THEN the consumer sees them FIFO
	var got []int
	for v := range b.Events() {
		got = append(got, v)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("received %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBuffer_Full_DropsWithoutBlocking(t *testing.T) {
	// GIVEN a full buffer
	b := New[int](2)
	b.TryPublish(1)
	b.TryPublish(2)

	// WHEN more records are published
	ok := b.TryPublish(3)

	// THEN they are dropped and counted, and delivery resumes after
	// the consumer drains
	if ok {
		t.Errorf("TryPublish on full buffer: got true, want false")
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped: got %d, want 1", b.Dropped())
	}
	<-b.Events()
	if !b.TryPublish(4) {
		t.Errorf("TryPublish after drain: got false, want true")
	}
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	b := New[int](0)
	if cap(b.ch) != DefaultCapacity {
		t.Errorf("capacity: got %d, want %d", cap(b.ch), DefaultCapacity)
	}
}
