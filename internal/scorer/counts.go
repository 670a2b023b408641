package scorer

import (
	"encoding/json"
	"math"
)

// Counts are raw, summable prediction counters. Ratios are only derived
// from fully merged counts.
type Counts struct {
	N     int64 `json:"n"`
	Top1  int64 `json:"top1"`
	Top3  int64 `json:"top3"`
	NTypo int64 `json:"n_typo"`

	// Auto-correction confusion counts, for the first prediction and for
	// the first three.
	TP  int64 `json:"tp"`
	FP  int64 `json:"fp"`
	FN  int64 `json:"fn"`
	TN  int64 `json:"tn"`
	TP3 int64 `json:"tp3"`
	FP3 int64 `json:"fp3"`
	FN3 int64 `json:"fn3"`
	TN3 int64 `json:"tn3"`
}

// Add sums o into c, field by field.
func (c *Counts) Add(o Counts) {
	c.N += o.N
	c.Top1 += o.Top1
	c.Top3 += o.Top3
	c.NTypo += o.NTypo
	c.TP += o.TP
	c.FP += o.FP
	c.FN += o.FN
	c.TN += o.TN
	c.TP3 += o.TP3
	c.FP3 += o.FP3
	c.FN3 += o.FN3
	c.TN3 += o.TN3
}

// Plus returns the sum of c and o.
func (c Counts) Plus(o Counts) Counts {
	c.Add(o)
	return c
}

// Clean returns the number of typo-free items.
func (c Counts) Clean() int64 { return c.N - c.NTypo }

// typoPart keeps only the typo-bearing counters.
func (c Counts) typoPart() Counts {
	return Counts{
		N: c.NTypo, NTypo: c.NTypo,
		Top1: c.TP, Top3: c.TP3,
		TP: c.TP, FN: c.FN, TP3: c.TP3, FN3: c.FN3,
	}
}

// cleanShare scales the typo-free counters by p. The clean total is rounded
// once and the negatives derived from it, so top-3 counts never fall below
// top-1 counts.
func (c Counts) cleanShare(p float64) Counts {
	n := int64(math.Round(float64(c.Clean()) * p))
	tn := min(int64(math.Round(float64(c.TN)*p)), n)
	tn3 := min(max(int64(math.Round(float64(c.TN3)*p)), tn), n)
	return Counts{
		N: n, Top1: tn, Top3: tn3,
		TN: tn, FP: n - tn, TN3: tn3, FP3: n - tn3,
	}
}

// ScoreKind selects which metrics a score carries.
type ScoreKind int

const (
	// AccuracyScore carries accuracy, top-3 accuracy and n.
	AccuracyScore ScoreKind = iota
	// CorrectionScore adds precision, recall and F-beta.
	CorrectionScore
)

// Score holds ratios derived from counts. Empty counts yield zero ratios.
type Score struct {
	Kind          ScoreKind
	Accuracy      float64
	Precision     float64
	Recall        float64
	FScore        float64
	Top3Accuracy  float64
	Top3Precision float64
	Top3Recall    float64
	Top3FScore    float64
	N             int64
	NTypo         int64
}

type accuracyJSON struct {
	Accuracy     float64 `json:"accuracy"`
	Top3Accuracy float64 `json:"top3_accuracy"`
	N            int64   `json:"n"`
}

type correctionJSON struct {
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	FScore        float64 `json:"fscore"`
	Top3Accuracy  float64 `json:"top3_accuracy"`
	Top3Precision float64 `json:"top3_precision"`
	Top3Recall    float64 `json:"top3_recall"`
	Top3FScore    float64 `json:"top3_fscore"`
	NTypo         int64   `json:"n_typo"`
	N             int64   `json:"n"`
}

// MarshalJSON writes only the metrics of the score kind.
func (s Score) MarshalJSON() ([]byte, error) {
	if s.Kind == AccuracyScore {
		return json.Marshal(accuracyJSON{Accuracy: s.Accuracy, Top3Accuracy: s.Top3Accuracy, N: s.N})
	}
	return json.Marshal(correctionJSON{
		Accuracy: s.Accuracy, Precision: s.Precision, Recall: s.Recall, FScore: s.FScore,
		Top3Accuracy: s.Top3Accuracy, Top3Precision: s.Top3Precision,
		Top3Recall: s.Top3Recall, Top3FScore: s.Top3FScore,
		NTypo: s.NTypo, N: s.N,
	})
}

// UnmarshalJSON reads either shape, telling them apart by the precision key.
func (s *Score) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	var c correctionJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	*s = Score{
		Accuracy: c.Accuracy, Precision: c.Precision, Recall: c.Recall, FScore: c.FScore,
		Top3Accuracy: c.Top3Accuracy, Top3Precision: c.Top3Precision,
		Top3Recall: c.Top3Recall, Top3FScore: c.Top3FScore,
		NTypo: c.NTypo, N: c.N,
	}
	if _, ok := keys["precision"]; ok {
		s.Kind = CorrectionScore
	}
	return nil
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// FBeta weights precision and recall: (1+b²)·p·r / (b²·p + r). It is zero
// when both are zero.
func FBeta(precision, recall, beta float64) float64 {
	b2 := beta * beta
	den := b2*precision + recall
	if den == 0 {
		return 0
	}
	return (1 + b2) * precision * recall / den
}

// AccuracyOf derives accuracy metrics.
func AccuracyOf(c Counts) Score {
	return Score{
		Kind:         AccuracyScore,
		Accuracy:     ratio(c.Top1, c.N),
		Top3Accuracy: ratio(c.Top3, c.N),
		N:            c.N,
	}
}

// CorrectionOf derives auto-correction metrics. Only the first prediction
// decides precision, recall and F-beta; the top-3 variants use the first
// three predictions.
func CorrectionOf(c Counts, beta float64) Score {
	p := ratio(c.TP, c.TP+c.FP)
	r := ratio(c.TP, c.TP+c.FN)
	p3 := ratio(c.TP3, c.TP3+c.FP3)
	r3 := ratio(c.TP3, c.TP3+c.FN3)
	return Score{
		Kind:          CorrectionScore,
		Accuracy:      ratio(c.TP+c.TN, c.TP+c.TN+c.FP+c.FN),
		Precision:     p,
		Recall:        r,
		FScore:        FBeta(p, r, beta),
		Top3Accuracy:  ratio(c.TP3+c.TN3, c.TP3+c.TN3+c.FP3+c.FN3),
		Top3Precision: p3,
		Top3Recall:    r3,
		Top3FScore:    FBeta(p3, r3, beta),
		N:             c.N,
		NTypo:         c.NTypo,
	}
}
