package hazel

import (
	"math"
	"testing"
)

func TestRectContains(t *testing.T) {
	r := Rect{10, 10, 20, 20}
	if !r.Contains(15, 15) {
		t.Error("interior point should be contained")
	}
	if !r.Contains(10, 10) || !r.Contains(30, 30) {
		t.Error("edge points should be contained")
	}
	if r.Contains(9, 15) || r.Contains(15, 31) {
		t.Error("exterior point should not be contained")
	}
	if r.Contains(math.NaN(), 15) {
		t.Error("NaN should never be contained")
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	if !a.Intersects(Rect{5, 5, 10, 10}) {
		t.Error("overlapping rects should intersect")
	}
	if !a.Intersects(Rect{10, 0, 5, 5}) {
		t.Error("edge-adjacent rects should intersect")
	}
	if a.Intersects(Rect{11, 11, 5, 5}) {
		t.Error("disjoint rects should not intersect")
	}
}

func TestRectValid(t *testing.T) {
	if !(Rect{0, 0, 10, 10}).Valid() {
		t.Error("finite rect should be valid")
	}
	if !(Rect{0, 0, 0, 0}).Valid() {
		t.Error("zero-extent rect is still valid geometry")
	}
	for _, r := range []Rect{
		{math.NaN(), 0, 1, 1},
		{0, math.Inf(1), 1, 1},
		{0, 0, math.NaN(), 1},
		{0, 0, 1, math.Inf(-1)},
		{0, 0, -1, 1},
	} {
		if r.Valid() {
			t.Errorf("%+v should be invalid", r)
		}
	}
}

func TestColorNRGBA(t *testing.T) {
	c := Color{1, 0.5, 0, 1}.NRGBA()
	if c.R != 255 || c.B != 0 || c.A != 255 {
		t.Errorf("NRGBA = %+v", c)
	}
	// Out-of-range components clamp instead of wrapping.
	over := Color{2, -1, 0, 1}.NRGBA()
	if over.R != 255 || over.G != 0 {
		t.Errorf("clamped NRGBA = %+v", over)
	}
}

func TestParticleBounds(t *testing.T) {
	p := testParticle(100, 50, 8)
	b := p.Bounds()
	if b.X != 96 || b.Y != 46 || b.Width != 8 || b.Height != 8 {
		t.Errorf("Bounds = %+v, want centered 8×8 at (96,46)", b)
	}
}
