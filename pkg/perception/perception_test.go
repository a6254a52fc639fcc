package perception

import "testing"

func TestRect_CenterAndArea(t *testing.T) {
	tests := []struct {
		name       string
		r          Rect
		cx, cy     float64
		expectArea float64
	}{
		{"origin box", Rect{X: 0, Y: 0, W: 100, H: 50}, 50, 25, 5000},
		{"offset box", Rect{X: 200, Y: 120, W: 80, H: 80}, 240, 160, 6400},
		{"empty", Rect{}, 0, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.r.Center()
			if x != tc.cx || y != tc.cy {
				t.Errorf("Center: got (%.1f, %.1f), want (%.1f, %.1f)", x, y, tc.cx, tc.cy)
			}
			if a := tc.r.Area(); a != tc.expectArea {
				t.Errorf("Area: got %.1f, want %.1f", a, tc.expectArea)
			}
		})
	}
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name      string
		faces     []Face
		expectNil bool
		expectIdx int
	}{
		{
			name:      "no faces",
			faces:     nil,
			expectNil: true,
		},
		{
			name:      "single face",
			faces:     []Face{{Box: Rect{W: 10, H: 10}, Confidence: 0.4}},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			faces: []Face{
				{Box: Rect{W: 200, H: 200}, Confidence: 0.5},
				{Box: Rect{X: 300, W: 100, H: 100}, Confidence: 0.95},
			},
			expectIdx: 1, // 0.95*0.7+0.25*0.3=0.74 vs 0.5*0.7+1.0*0.3=0.65
		},
		{
			name: "equal confidence picks larger",
			faces: []Face{
				{Box: Rect{W: 50, H: 50}, Confidence: 0.8},
				{Box: Rect{X: 100, W: 150, H: 150}, Confidence: 0.8},
			},
			expectIdx: 1,
		},
		{
			name: "zero-area boxes fall back to confidence",
			faces: []Face{
				{Confidence: 0.3},
				{Confidence: 0.9},
			},
			expectIdx: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := Primary(tc.faces)
			if tc.expectNil {
				if best != nil {
					t.Errorf("Primary: expected nil, got %+v", best)
				}
				return
			}
			if best == nil {
				t.Fatal("Primary: expected a face, got nil")
			}
			if best != &tc.faces[tc.expectIdx] {
				t.Errorf("Primary: got %+v, want index %d", *best, tc.expectIdx)
			}
		})
	}
}
