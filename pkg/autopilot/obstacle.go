package autopilot

// DefaultThreshold is the smoothed distance below which something is in
// front of the robot.
const DefaultThreshold = 7

// DefaultWindow is the number of distance samples averaged.
const DefaultWindow = 5

// MeanFilter is a moving average over the last n samples.
type MeanFilter struct {
	buf  []float64
	next int
	full bool
	sum  float64
}

// NewMeanFilter creates a filter over n samples; n < 1 means DefaultWindow.
func NewMeanFilter(n int) *MeanFilter {
	if n < 1 {
		n = DefaultWindow
	}
	return &MeanFilter{buf: make([]float64, n)}
}

// Add pushes a sample and returns the mean of the window.
func (f *MeanFilter) Add(v float64) float64 {
	f.sum += v - f.buf[f.next]
	f.buf[f.next] = v
	f.next++
	if f.next == len(f.buf) {
		f.next = 0
		f.full = true
	}
	return f.Mean()
}

// Len returns how many samples are in the window.
func (f *MeanFilter) Len() int {
	if f.full {
		return len(f.buf)
	}
	return f.next
}

// Mean returns the mean of the samples in the window, or 0 when empty.
func (f *MeanFilter) Mean() float64 {
	n := f.Len()
	if n == 0 {
		return 0
	}
	return f.sum / float64(n)
}

// Reset empties the window.
func (f *MeanFilter) Reset() {
	for i := range f.buf {
		f.buf[i] = 0
	}
	f.next, f.full, f.sum = 0, false, 0
}

// ObstacleDetector turns distance samples into an obstacle flag.
//
// A report of true sets the session's IgnoreNext bit, so the following
// reading reports false and clears the bit again. The bit starts set, which
// hides the first reading after activation.
type ObstacleDetector struct {
	Threshold float64
}

// Detect adds raw to the session filter and returns the obstacle flag and
// the smoothed distance.
func (d ObstacleDetector) Detect(s *Session, raw float64) (bool, float64) {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	mean := s.Filter.Add(raw)

	obstacle := mean < threshold && !s.IgnoreNext
	s.IgnoreNext = obstacle
	return obstacle, mean
}
