package drowsiness

import (
	"errors"
	"math"
	"testing"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// run feeds ratios and returns the indexes of transitions and the final result.
func run(t *testing.T, m *Machine, ratios []float64) (toDrowsy, toAwake []int) {
	t.Helper()
	for i, r := range ratios {
		res, err := m.Observe(r)
		if err != nil {
			t.Fatalf("Observe(%v) at %d: %v", r, i, err)
		}
		if res.Transitioned {
			if res.Status == Drowsy {
				toDrowsy = append(toDrowsy, i)
			} else {
				toAwake = append(toAwake, i)
			}
		}
	}
	return toDrowsy, toAwake
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Threshold != 0.28 {
		t.Errorf("Threshold: got %v, want 0.28", cfg.Threshold)
	}
	if cfg.Frames != 40 {
		t.Errorf("Frames: got %v, want 40", cfg.Frames)
	}
	if problems := cfg.Validate(); problems != nil {
		t.Errorf("Validate: got %v, want nil", problems)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		bad  int
	}{
		{"zero threshold", Config{Threshold: 0, Frames: 40}, 1},
		{"NaN threshold", Config{Threshold: math.NaN(), Frames: 40}, 1},
		{"negative frames", Config{Threshold: 0.2, Frames: -1}, 1},
		{"both wrong", Config{Threshold: -1, Frames: -3}, 2},
		{"zero frames allowed", Config{Threshold: 0.2, Frames: 0}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(tc.cfg.Validate()); got != tc.bad {
				t.Errorf("Validate: got %d problems, want %d", got, tc.bad)
			}
		})
	}
}

func TestObserve_DrowsyAfterStrictlyMoreThanFrames(t *testing.T) {
	m := New(DefaultConfig())

	ratios := append(repeat(0.20, 41), 0.35)
	toDrowsy, toAwake := run(t, m, ratios)

	if len(toDrowsy) != 1 || toDrowsy[0] != 40 {
		t.Errorf("Drowsy transitions: got %v, want [40]", toDrowsy)
	}
	if len(toAwake) != 1 || toAwake[0] != 41 {
		t.Errorf("Awake transitions: got %v, want [41]", toAwake)
	}
	if st := m.State(); st.Status != Awake || st.ConsecutiveLow != 0 {
		t.Errorf("final state: got %+v, want Awake/0", st)
	}
}

func TestObserve_FortyLowFramesIsNotEnough(t *testing.T) {
	m := New(DefaultConfig())

	toDrowsy, _ := run(t, m, repeat(0.20, 40))
	if len(toDrowsy) != 0 {
		t.Errorf("Drowsy transitions: got %v, want none", toDrowsy)
	}
	if st := m.State(); st.ConsecutiveLow != 40 || st.Status != Awake {
		t.Errorf("state: got %+v, want 40 low frames while Awake", st)
	}
}

func TestObserve_ConstantLowScenario(t *testing.T) {
	m := New(DefaultConfig())

	for i := 0; i < 42; i++ {
		res, err := m.Observe(0.25)
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
		wantTransition := i == 40
		if res.Transitioned != wantTransition {
			t.Errorf("frame %d: Transitioned=%v, want %v", i, res.Transitioned, wantTransition)
		}
		wantStatus := Awake
		if i >= 40 {
			wantStatus = Drowsy
		}
		if res.Status != wantStatus {
			t.Errorf("frame %d: Status=%v, want %v", i, res.Status, wantStatus)
		}
		if !res.Closed {
			t.Errorf("frame %d: Closed=false, want true", i)
		}
	}
}

func TestObserve_SustainedDrowsyTransitionsOnce(t *testing.T) {
	m := New(DefaultConfig())

	ratios := append(repeat(0.1, 141), 0.4)
	toDrowsy, toAwake := run(t, m, ratios)

	if len(toDrowsy) != 1 {
		t.Errorf("Drowsy transitions: got %d, want 1", len(toDrowsy))
	}
	if len(toAwake) != 1 {
		t.Errorf("Awake transitions: got %d, want 1", len(toAwake))
	}
}

func TestObserve_OscillationNeverDrowsy(t *testing.T) {
	m := New(DefaultConfig())

	var ratios []float64
	for i := 0; i < 20; i++ {
		ratios = append(ratios, repeat(0.15, 40)...)
		ratios = append(ratios, 0.30)
	}
	toDrowsy, toAwake := run(t, m, ratios)

	if len(toDrowsy) != 0 || len(toAwake) != 0 {
		t.Errorf("transitions: drowsy=%v awake=%v, want none", toDrowsy, toAwake)
	}
}

func TestObserve_ThresholdIsExclusive(t *testing.T) {
	m := New(Config{Threshold: 0.28, Frames: 0})

	res, err := m.Observe(0.28)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if res.Closed || res.Status != Awake {
		t.Errorf("ratio equal to threshold: got %+v, want open/Awake", res)
	}

	res, _ = m.Observe(0.2799)
	if !res.EnteredDrowsy() {
		t.Errorf("Frames=0: first closed frame should enter Drowsy, got %+v", res)
	}
}

func TestObserve_InvalidMeasurement(t *testing.T) {
	m := New(DefaultConfig())
	run(t, m, repeat(0.1, 10))

	for _, bad := range []float64{math.NaN(), -0.01, math.Inf(1)} {
		_, err := m.Observe(bad)
		if !errors.Is(err, ErrInvalidMeasurement) {
			t.Errorf("Observe(%v): got %v, want ErrInvalidMeasurement", bad, err)
		}
	}
	if got := m.State().ConsecutiveLow; got != 10 {
		t.Errorf("counter after invalid input: got %d, want 10", got)
	}
}

func TestReset(t *testing.T) {
	m := New(DefaultConfig())
	run(t, m, repeat(0.1, 50))

	if m.State().Status != Drowsy {
		t.Fatalf("expected Drowsy before reset")
	}
	m.Reset()
	if st := m.State(); st != (State{}) {
		t.Errorf("after Reset: got %+v, want zero state", st)
	}
}

func TestStatus_String(t *testing.T) {
	if Awake.String() != "Awake" || Drowsy.String() != "Drowsy" {
		t.Errorf("labels: got %q/%q", Awake, Drowsy)
	}
	if Status(7).String() != "Status(7)" {
		t.Errorf("unknown status: got %q", Status(7).String())
	}
}

func TestStatus_Text(t *testing.T) {
	for _, s := range []Status{Awake, Drowsy} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var got Status
		if err := got.UnmarshalText(text); err != nil || got != s {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}

	var s Status
	if err := s.UnmarshalText([]byte("Asleep")); err == nil {
		t.Error("expected error for unknown label")
	}
}
