package eye

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

// openEye is a symmetric contour 6px wide with 2px vertical openings.
func openEye() Shape {
	return Shape{
		{X: 0, Y: 0},
		{X: 2, Y: -1},
		{X: 4, Y: -1},
		{X: 6, Y: 0},
		{X: 4, Y: 1},
		{X: 2, Y: 1},
	}
}

func transform(s Shape, dx, dy, theta float64) Shape {
	sin, cos := math.Sin(theta), math.Cos(theta)
	var out Shape
	for i, p := range s {
		out[i] = Point{
			X: p.X*cos - p.Y*sin + dx,
			Y: p.X*sin + p.Y*cos + dy,
		}
	}
	return out
}

func TestOpenness(t *testing.T) {
	tests := []struct {
		name   string
		shape  Shape
		expect float64
	}{
		{
			name:   "open eye",
			shape:  openEye(),
			expect: (2.0 + 2.0) / (2 * 6.0),
		},
		{
			name: "collinear eye is fully closed",
			shape: Shape{
				{X: 0, Y: 5}, {X: 2, Y: 5}, {X: 4, Y: 5},
				{X: 6, Y: 5}, {X: 4, Y: 5}, {X: 2, Y: 5},
			},
			expect: 0,
		},
		{
			name: "asymmetric openings",
			shape: Shape{
				{X: 0, Y: 0}, {X: 2, Y: -3}, {X: 4, Y: -1},
				{X: 10, Y: 0}, {X: 4, Y: 1}, {X: 2, Y: 3},
			},
			expect: (6.0 + 2.0) / 20.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Openness(tc.shape)
			if err != nil {
				t.Fatalf("Openness: unexpected error %v", err)
			}
			if !almostEqual(got, tc.expect) {
				t.Errorf("Openness: got %.6f, want %.6f", got, tc.expect)
			}
		})
	}
}

func TestOpenness_Degenerate(t *testing.T) {
	s := openEye()
	s[3] = s[0]

	_, err := Openness(s)
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("Openness: got %v, want ErrDegenerateGeometry", err)
	}
}

func TestOpenness_InvariantUnderRigidMotion(t *testing.T) {
	base, err := Openness(openEye())
	if err != nil {
		t.Fatalf("Openness: %v", err)
	}

	motions := []struct {
		name      string
		dx, dy, a float64
	}{
		{"translate", 120, -35, 0},
		{"rotate 30deg", 0, 0, math.Pi / 6},
		{"rotate 90deg", 0, 0, math.Pi / 2},
		{"rotate and translate", 310.5, 204.25, -1.1},
	}

	for _, m := range motions {
		t.Run(m.name, func(t *testing.T) {
			got, err := Openness(transform(openEye(), m.dx, m.dy, m.a))
			if err != nil {
				t.Fatalf("Openness: %v", err)
			}
			if !almostEqual(got, base) {
				t.Errorf("Openness after %s: got %.9f, want %.9f", m.name, got, base)
			}
		})
	}
}

func TestShapeFrom(t *testing.T) {
	if _, err := ShapeFrom(make([]Point, 5)); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("ShapeFrom(5 points): got %v, want ErrInvalidShape", err)
	}

	want := openEye()
	got, err := ShapeFrom(want[:])
	if err != nil {
		t.Fatalf("ShapeFrom: %v", err)
	}
	if got != want {
		t.Errorf("ShapeFrom: got %+v, want %+v", got, want)
	}
}

func TestPair_Ratio(t *testing.T) {
	open := openEye()
	narrow := Shape{
		{X: 0, Y: 0}, {X: 2, Y: -0.5}, {X: 4, Y: -0.5},
		{X: 6, Y: 0}, {X: 4, Y: 0.5}, {X: 2, Y: 0.5},
	}
	degenerate := open
	degenerate[3] = degenerate[0]

	openRatio := 4.0 / 12.0
	narrowRatio := 2.0 / 12.0

	tests := []struct {
		name    string
		pair    Pair
		expect  float64
		wantErr bool
	}{
		{
			name:   "both eyes averaged",
			pair:   Pair{Left: open[:], Right: narrow[:]},
			expect: (openRatio + narrowRatio) / 2,
		},
		{
			name:   "left only",
			pair:   Pair{Left: narrow[:]},
			expect: narrowRatio,
		},
		{
			name:   "right only",
			pair:   Pair{Right: open[:]},
			expect: openRatio,
		},
		{
			name:   "degenerate side ignored",
			pair:   Pair{Left: degenerate[:], Right: narrow[:]},
			expect: narrowRatio,
		},
		{
			name:    "no eyes",
			pair:    Pair{},
			wantErr: true,
		},
		{
			name:    "both unusable",
			pair:    Pair{Left: degenerate[:], Right: open[:4]},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.pair.Ratio()
			if tc.wantErr {
				if !errors.Is(err, ErrNoEyes) {
					t.Errorf("Ratio: got err %v, want ErrNoEyes", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Ratio: unexpected error %v", err)
			}
			if !almostEqual(got, tc.expect) {
				t.Errorf("Ratio: got %.6f, want %.6f", got, tc.expect)
			}
		})
	}
}

func TestPair_RatioKeepsUnderlyingCause(t *testing.T) {
	s := openEye()
	s[3] = s[0]

	_, err := Pair{Left: s[:]}.Ratio()
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("Ratio: got %v, want wrapped ErrDegenerateGeometry", err)
	}
}
