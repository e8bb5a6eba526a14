package classify

import "sync"

// Matrix is the confusion-matrix tally for a run. The four primary buckets
// plus Indeterminate partition all attempts; Add is safe for concurrent
// use by classification workers.
type Matrix struct {
	mu sync.Mutex

	tp            int
	fp            int
	tn            int
	fn            int
	indeterminate int
}

// Counts is an immutable snapshot of a Matrix.
type Counts struct {
	TP            int `json:"tp"`
	FP            int `json:"fp"`
	TN            int `json:"tn"`
	FN            int `json:"fn"`
	Indeterminate int `json:"indeterminate"`
}

// NewMatrix creates an empty confusion matrix.
func NewMatrix() *Matrix {
	return &Matrix{}
}

// Add records one outcome. Invalid outcomes count as indeterminate.
func (m *Matrix) Add(o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch o {
	case TruePositive:
		m.tp++
	case FalsePositive:
		m.fp++
	case TrueNegative:
		m.tn++
	case FalseNegative:
		m.fn++
	default:
		m.indeterminate++
	}
}

// Counts returns a snapshot of the current tallies.
func (m *Matrix) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Counts{TP: m.tp, FP: m.fp, TN: m.tn, FN: m.fn, Indeterminate: m.indeterminate}
}

// Total returns the number of attempts recorded, indeterminate included.
func (c Counts) Total() int {
	return c.TP + c.FP + c.TN + c.FN + c.Indeterminate
}

// Metrics are the aggregate rates derived from final matrix counts.
// All values are in [0, 1]; rates with a zero denominator are 0, except
// ResistanceRate which is defined as 1 - ExploitationRate.
type Metrics struct {
	// Precision is TP/(TP+FP).
	Precision float64 `json:"precision"`

	// Recall is TP/(TP+FN).
	Recall float64 `json:"recall"`

	// F1 is the harmonic mean of precision and recall; 0 whenever TP is 0.
	F1 float64 `json:"f1"`

	// ExploitationRate is FN/(TP+FN): the fraction of malicious attempts
	// that evaded detection.
	ExploitationRate float64 `json:"exploitation_rate"`

	// ResistanceRate is 1 - ExploitationRate.
	ResistanceRate float64 `json:"resistance_rate"`

	// FalsePositiveRate is FP/(FP+TN).
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// Metrics derives the aggregate rates from the counts.
func (c Counts) Metrics() Metrics {
	var m Metrics

	if c.TP+c.FP > 0 {
		m.Precision = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		m.Recall = float64(c.TP) / float64(c.TP+c.FN)
		m.ExploitationRate = float64(c.FN) / float64(c.TP+c.FN)
	}
	m.ResistanceRate = 1 - m.ExploitationRate

	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	if c.FP+c.TN > 0 {
		m.FalsePositiveRate = float64(c.FP) / float64(c.FP+c.TN)
	}

	return m
}
