package autopilot

import (
	"testing"

	"github.com/gwillem/fetchbot/pkg/robot"
)

func TestMeanFilter(t *testing.T) {
	f := NewMeanFilter(3)
	if f.Len() != 0 || f.Mean() != 0 {
		t.Fatalf("empty filter: len %d mean %v", f.Len(), f.Mean())
	}

	steps := []struct {
		in   float64
		mean float64
		len  int
	}{
		{3, 3, 1},
		{9, 6, 2},
		{6, 6, 3},
		{12, 9, 3}, // 3 falls out
		{0, 6, 3},
	}
	for i, s := range steps {
		if got := f.Add(s.in); got != s.mean {
			t.Errorf("step %d: mean = %v, want %v", i, got, s.mean)
		}
		if f.Len() != s.len {
			t.Errorf("step %d: len = %d, want %d", i, f.Len(), s.len)
		}
	}

	f.Reset()
	if f.Len() != 0 || f.Mean() != 0 {
		t.Errorf("after reset: len %d mean %v", f.Len(), f.Mean())
	}
	if got := f.Add(4); got != 4 {
		t.Errorf("after reset: mean = %v, want 4", got)
	}
}

func TestMeanFilter_DefaultWindow(t *testing.T) {
	f := NewMeanFilter(0)
	for i := 0; i < 10; i++ {
		f.Add(1)
	}
	if f.Len() != DefaultWindow {
		t.Errorf("len = %d, want %d", f.Len(), DefaultWindow)
	}
}

func TestDetect_FirstReadingNeverReports(t *testing.T) {
	for _, raw := range []float64{0, 1, 3, 6.9, 100} {
		s := NewSession(robot.Left, DefaultWindow)
		if got, _ := (ObstacleDetector{}).Detect(s, raw); got {
			t.Errorf("raw %v: first reading reported an obstacle", raw)
		}
		if s.IgnoreNext {
			t.Errorf("raw %v: IgnoreNext still set after first reading", raw)
		}
	}
}

func TestDetect_Hysteresis(t *testing.T) {
	s := NewSession(robot.Left, 1)
	d := ObstacleDetector{Threshold: 7}

	// with the obstacle always present, reports alternate
	want := []bool{false, true, false, true, false}
	for i, w := range want {
		if got, _ := d.Detect(s, 3); got != w {
			t.Errorf("reading %d: obstacle = %v, want %v", i, got, w)
		}
		if s.IgnoreNext != w {
			t.Errorf("reading %d: IgnoreNext = %v, want %v", i, s.IgnoreNext, w)
		}
	}
}

func TestDetect_Threshold(t *testing.T) {
	tests := []struct {
		raw  float64
		want bool
	}{
		{6.99, true},
		{7, false},
		{50, false},
	}
	for _, tt := range tests {
		s := NewSession(robot.Left, 1)
		s.IgnoreNext = false
		got, dist := (ObstacleDetector{}).Detect(s, tt.raw)
		if got != tt.want {
			t.Errorf("raw %v: obstacle = %v, want %v", tt.raw, got, tt.want)
		}
		if dist != tt.raw {
			t.Errorf("raw %v: distance = %v", tt.raw, dist)
		}
	}
}

func TestDetect_Smoothing(t *testing.T) {
	s := NewSession(robot.Left, DefaultWindow)
	s.IgnoreNext = false
	d := ObstacleDetector{}

	for i := 0; i < DefaultWindow; i++ {
		d.Detect(s, 100)
	}
	// one close spike does not pull the mean under the threshold
	if got, mean := d.Detect(s, 0); got {
		t.Errorf("spike reported an obstacle, mean %v", mean)
	}
}
