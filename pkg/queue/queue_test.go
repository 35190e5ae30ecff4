package queue

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"power of two", 16, false},
		{"minimum", 2, false},
		{"one", 1, true},
		{"zero", 0, true},
		{"negative", -4, true},
		{"not power of two", 12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New(tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
			if err == nil && q.Cap() != tt.size-1 {
				t.Errorf("Cap() = %d, want %d", q.Cap(), tt.size-1)
			}
		})
	}
}

func TestQueue_FIFO(t *testing.T) {
	q, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	n, err := q.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Fatalf("Write() = %d, %v, want 3, nil", n, err)
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}
	if q.Space() != 4 {
		t.Errorf("Space() = %d, want 4", q.Space())
	}

	for _, want := range []byte("abc") {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %q, %v, want %q, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok")
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q, _ := New(4)

	for round := 0; round < 10; round++ {
		in := []byte{byte(round), byte(round + 1), byte(round + 2)}
		if n, err := q.Write(in); err != nil || n != 3 {
			t.Fatalf("round %d: Write() = %d, %v", round, n, err)
		}
		for i, want := range in {
			got, ok := q.Pop()
			if !ok || got != want {
				t.Fatalf("round %d byte %d: Pop() = %d, %v, want %d", round, i, got, ok, want)
			}
		}
	}
}

func TestQueue_Full(t *testing.T) {
	q, _ := New(4)

	n, err := q.Write([]byte("hello"))
	if !errors.Is(err, ErrFull) {
		t.Errorf("Write() error = %v, want ErrFull", err)
	}
	if n != 3 {
		t.Errorf("Write() n = %d, want 3", n)
	}
	if q.Push('x') {
		t.Error("Push() on full queue returned true")
	}

	q.Reset()
	if q.Len() != 0 || q.Space() != 3 {
		t.Errorf("after Reset() Len() = %d Space() = %d, want 0 and 3", q.Len(), q.Space())
	}
}
