package monitor

import (
	"reflect"
	"testing"
)

func TestHistory_LenNeverExceedsCapacity(t *testing.T) {
	h := NewHistory(5)
	for k := 1; k <= 12; k++ {
		h.Push(float64(k))
		want := min(k, 5)
		if h.Len() != want {
			t.Fatalf("after %d pushes Len() = %d, want %d", k, h.Len(), want)
		}
		if got := len(h.Values()); got != want {
			t.Fatalf("after %d pushes len(Values()) = %d, want %d", k, got, want)
		}
	}
}

func TestHistory_KeepsMostRecentInOrder(t *testing.T) {
	h := NewHistory(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Push(v)
	}
	if got, want := h.Values(), []float64{3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	if last, ok := h.Last(); !ok || last != 5 {
		t.Fatalf("Last() = %v, %v, want 5, true", last, ok)
	}
}

func TestHistory_ValuesIsACopy(t *testing.T) {
	h := NewHistory(3)
	h.Push(1)
	vals := h.Values()
	vals[0] = 99
	if got := h.Values()[0]; got != 1 {
		t.Fatalf("Values()[0] = %v after caller mutation, want 1", got)
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(0)
	if h.Cap() != DefaultHistoryCapacity {
		t.Fatalf("Cap() = %d, want %d", h.Cap(), DefaultHistoryCapacity)
	}
	if _, ok := h.Last(); ok {
		t.Fatal("Last() ok = true on empty history, want false")
	}
	if len(h.Values()) != 0 {
		t.Fatalf("Values() = %v, want empty", h.Values())
	}
}

func TestHistory_DefaultCapacityWindow(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)
	for i := 0; i < 300; i++ {
		h.Push(float64(i))
	}
	vals := h.Values()
	if len(vals) != DefaultHistoryCapacity {
		t.Fatalf("len(Values()) = %d, want %d", len(vals), DefaultHistoryCapacity)
	}
	if vals[0] != 180 || vals[len(vals)-1] != 299 {
		t.Fatalf("window = [%v..%v], want [180..299]", vals[0], vals[len(vals)-1])
	}
}
