package signal

// UpdateWindow appends mid and drops the oldest samples beyond capacity. The input is not modified.
func UpdateWindow(samples []float64, mid float64, capacity int) []float64 {
	if capacity <= 0 {
		capacity = WindowCapacity
	}
	out := make([]float64, 0, min(len(samples)+1, capacity))
	if drop := len(samples) + 1 - capacity; drop > 0 {
		samples = samples[drop:]
	}
	out = append(out, samples...)
	return append(out, mid)
}

// Window is a bounded FIFO of mid samples in arrival order.
type Window struct {
	capacity int
	samples  []float64
}

// NewWindow allocates a window; non-positive capacity falls back to WindowCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowCapacity
	}
	return &Window{capacity: capacity, samples: make([]float64, 0, capacity)}
}

// Append records a sample, evicting the oldest once full.
func (w *Window) Append(mid float64) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples[len(w.samples)-1] = mid
		return
	}
	w.samples = append(w.samples, mid)
}

func (w *Window) Len() int { return len(w.samples) }

// Latest returns the newest sample.
func (w *Window) Latest() (float64, bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	return w.samples[len(w.samples)-1], true
}

// Samples returns a copy, oldest first.
func (w *Window) Samples() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

func (w *Window) Momentum() float64 { return Momentum(w.samples) }
