package broadcast

import (
	"testing"
	"time"

	"github.com/padsense/vitals/internal/reading"
)

func intp(v int) *int { return &v }

func mustFilter(t *testing.T, expr string) Filter {
	t.Helper()
	f, err := NewFilter(expr)
	if err != nil {
		t.Fatalf("compile filter %q: %v", expr, err)
	}
	return f
}

func TestPublishDeliversToPatientSubscribers(t *testing.T) {
	h := NewHub(8, nil)
	sub := h.Subscribe("p1", Filter{})
	defer sub.Close()
	other := h.Subscribe("p2", Filter{})
	defer other.Close()

	h.Publish(reading.Reading{ID: 1, PatientID: "p1", Pressure: 100})

	select {
	case r := <-sub.C():
		if r.ID != 1 {
			t.Fatalf("got id %d", r.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber did not receive")
	}
	select {
	case r := <-other.C():
		t.Fatalf("p2 subscriber received p1 reading %d", r.ID)
	default:
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	h := NewHub(1, nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish(reading.Reading{ID: uint64(i), PatientID: "p1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked with no subscribers")
	}
}

func TestSlowSubscriberShedsOldest(t *testing.T) {
	h := NewHub(2, nil)
	drops := 0
	h.OnDrop = func(string) { drops++ }
	sub := h.Subscribe("p1", Filter{})
	defer sub.Close()

	// nobody reading; buffer of 2 sheds oldest entries
	for i := 1; i <= 5; i++ {
		h.Publish(reading.Reading{ID: uint64(i), PatientID: "p1"})
	}

	first := <-sub.C()
	second := <-sub.C()
	if first.ID != 4 || second.ID != 5 {
		t.Fatalf("expected newest retained (4,5), got (%d,%d)", first.ID, second.ID)
	}
	if drops != 0 {
		t.Fatalf("shedding should not count as drops, got %d", drops)
	}
}

func TestOrderPreservedForKeptReadings(t *testing.T) {
	h := NewHub(16, nil)
	sub := h.Subscribe("p1", Filter{})
	defer sub.Close()
	for i := 1; i <= 10; i++ {
		h.Publish(reading.Reading{ID: uint64(i), PatientID: "p1"})
	}
	last := uint64(0)
	for i := 0; i < 10; i++ {
		r := <-sub.C()
		if r.ID <= last {
			t.Fatalf("out of order: %d after %d", r.ID, last)
		}
		last = r.ID
	}
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	h := NewHub(8, nil)
	sub := h.Subscribe("p1", Filter{})
	sub.Close()
	sub.Close()
	if h.Subscribers("p1") != 0 {
		t.Fatalf("subscriber still registered after close")
	}
	// publishing after close must not panic
	h.Publish(reading.Reading{ID: 1, PatientID: "p1"})
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected closed channel")
	}
}

func TestFilterGatesDelivery(t *testing.T) {
	h := NewHub(8, nil)
	sub := h.Subscribe("p1", mustFilter(t, "pressure > 500"))
	defer sub.Close()

	h.Publish(reading.Reading{ID: 1, PatientID: "p1", Pressure: 100})
	h.Publish(reading.Reading{ID: 2, PatientID: "p1", Pressure: 900})

	select {
	case r := <-sub.C():
		if r.ID != 2 {
			t.Fatalf("filter let through id %d", r.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("matching reading not delivered")
	}
	select {
	case r := <-sub.C():
		t.Fatalf("unexpected second delivery: %d", r.ID)
	default:
	}
}

func TestFilterOptionalFields(t *testing.T) {
	f := mustFilter(t, "temperature != null && temperature >= 30")
	if f.Eval(reading.Reading{Pressure: 1}) {
		t.Fatalf("nil temperature must not match")
	}
	if !f.Eval(reading.Reading{Pressure: 1, Temperature: intp(31)}) {
		t.Fatalf("temperature 31 should match")
	}
	if f.Eval(reading.Reading{Pressure: 1, Temperature: intp(20)}) {
		t.Fatalf("temperature 20 should not match")
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := NewFilter("pressure >"); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestEmptyFilterMatchesAll(t *testing.T) {
	f, err := NewFilter("   ")
	if err != nil {
		t.Fatalf("empty filter: %v", err)
	}
	if !f.Eval(reading.Reading{}) {
		t.Fatalf("empty filter must match everything")
	}
}
