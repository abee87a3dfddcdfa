package noise

import (
	"math"
	"testing"
)

func TestSample_DeterministicAndUniform(t *testing.T) {
	for salt := int64(0); salt < 100; salt++ {
		a := Sample(42, salt)
		b := Sample(42, salt)
		if a != b {
			t.Fatalf("salt %d: got %v then %v", salt, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("salt %d: out of range: %v", salt, a)
		}
	}
	if Sample(42, 1) == Sample(42, 2) {
		t.Fatalf("independent salts collided")
	}
	if Sample(42, 1) == Sample(43, 1) {
		t.Fatalf("independent seeds collided")
	}
}

func TestSampleIn_Range(t *testing.T) {
	for salt := int64(0); salt < 50; salt++ {
		v := SampleIn(7, salt, 0.8, 1.2)
		if v < 0.8 || v >= 1.2 {
			t.Fatalf("salt %d: out of range: %v", salt, v)
		}
	}
}

func TestValue2D_RepeatableAndBounded(t *testing.T) {
	for x := -10.0; x <= 10; x += 0.7 {
		for y := -10.0; y <= 10; y += 0.7 {
			a := Value2D(x, y, 99)
			b := Value2D(x, y, 99)
			if a != b {
				t.Fatalf("(%v,%v): %v != %v", x, y, a, b)
			}
			if a < 0 || a > 1 {
				t.Fatalf("(%v,%v): out of range: %v", x, y, a)
			}
		}
	}
}

func TestValue2D_Continuity(t *testing.T) {
	// Adjacent samples 0.01 apart must not jump.
	prev := Value2D(0, 0, 5)
	for i := 1; i <= 400; i++ {
		x := float64(i) * 0.01
		v := Value2D(x, 0.5, 5)
		if math.Abs(v-prev) > 0.08 {
			t.Fatalf("discontinuity at x=%v: %v -> %v", x, prev, v)
		}
		prev = v
	}
}

func TestField_OctavesBounded(t *testing.T) {
	f := NewField(1337)
	for x := -60; x <= 60; x += 7 {
		for y := -60; y <= 60; y += 7 {
			v := f.AtOctaves(float64(x), float64(y))
			if v < 0 || v > 1 {
				t.Fatalf("(%d,%d): out of range: %v", x, y, v)
			}
			if v != f.AtOctaves(float64(x), float64(y)) {
				t.Fatalf("(%d,%d): not repeatable", x, y)
			}
		}
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(0, 0, 3, 4); d != 5 {
		t.Fatalf("got %v want 5", d)
	}
	if d := Distance(-2, -2, -2, -2); d != 0 {
		t.Fatalf("got %v want 0", d)
	}
}
