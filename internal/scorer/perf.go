package scorer

// Summary is a mergeable count/sum/min/max of integer samples.
type Summary struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// Observe records one sample.
func (s *Summary) Observe(v int64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// Merge folds o into s.
func (s *Summary) Merge(o Summary) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = o
		return
	}
	s.Min = min(s.Min, o.Min)
	s.Max = max(s.Max, o.Max)
	s.Count += o.Count
	s.Sum += o.Sum
}

// Mean returns the average sample, zero without samples.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// Perf tracks the cost of corrector calls: runtime in nanoseconds and
// allocated bytes.
type Perf struct {
	Runtime Summary `json:"runtime"`
	Memory  Summary `json:"memory"`
}

// Merge folds o into p.
func (p *Perf) Merge(o Perf) {
	p.Runtime.Merge(o.Runtime)
	p.Memory.Merge(o.Memory)
}

// Performances is the reported view of a Perf.
type Performances struct {
	MeanMemory     float64 `json:"mean_memory"`
	MinMemory      int64   `json:"min_memory"`
	MaxMemory      int64   `json:"max_memory"`
	MeanRuntime    float64 `json:"mean_runtime"`
	FastestRuntime int64   `json:"fastest_runtime"`
	SlowestRuntime int64   `json:"slowest_runtime"`
}

// Report derives the reported view.
func (p Perf) Report() Performances {
	return Performances{
		MeanMemory:     p.Memory.Mean(),
		MinMemory:      p.Memory.Min,
		MaxMemory:      p.Memory.Max,
		MeanRuntime:    p.Runtime.Mean(),
		FastestRuntime: p.Runtime.Min,
		SlowestRuntime: p.Runtime.Max,
	}
}
