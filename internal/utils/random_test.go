package utils

import "testing"

func TestSeededSource_Deterministic(t *testing.T) {
	a := NewSeededSource(42)
	b := NewSeededSource(42)

	for i := 0; i < 20; i++ {
		if a.IntN(100) != b.IntN(100) {
			t.Fatal("Expected identical sequences for identical seeds")
		}
		if a.Float64() != b.Float64() {
			t.Fatal("Expected identical float sequences for identical seeds")
		}
	}
}

func TestSeededSource_Bounds(t *testing.T) {
	src := NewSeededSource(7)
	for i := 0; i < 200; i++ {
		if v := src.IntN(3); v < 0 || v >= 3 {
			t.Fatalf("IntN(3) returned %d", v)
		}
		if f := src.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 returned %f", f)
		}
	}
	if src.IntN(0) != 0 {
		t.Error("Expected IntN(0) to return 0")
	}
}

func TestFixedSource(t *testing.T) {
	src := FixedSource{Int: 5, Float: 0.5}
	if src.IntN(3) != 2 {
		t.Errorf("Expected clamp to 2, got %d", src.IntN(3))
	}
	if src.Float64() != 0.5 {
		t.Errorf("Expected 0.5, got %f", src.Float64())
	}
}
