package ml

import "fmt"

// Report summarises predictions against known labels, treating Dutch as the
// positive class for precision and recall.
type Report struct {
	Total         int     `json:"total"`
	Correct       int     `json:"correct"`
	TruePositive  int     `json:"true_positive"`
	FalsePositive int     `json:"false_positive"`
	TrueNegative  int     `json:"true_negative"`
	FalseNegative int     `json:"false_negative"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1            float64 `json:"f1"`
}

// Evaluate scores m against ds. An empty dataset gives a zero report.
func Evaluate(m Model, ds Dataset) (Report, error) {
	var r Report
	if len(ds) == 0 {
		return r, nil
	}
	predicted, err := m.PredictAll(ds.Vectors())
	if err != nil {
		return r, err
	}
	r.Total = len(ds)
	for i, label := range predicted {
		actual := ds[i].Label
		switch {
		case label == Dutch && actual == Dutch:
			r.TruePositive++
		case label == Dutch:
			r.FalsePositive++
		case actual == Dutch:
			r.FalseNegative++
		default:
			r.TrueNegative++
		}
	}
	r.Correct = r.TruePositive + r.TrueNegative
	r.Accuracy = float64(r.Correct) / float64(r.Total)
	if n := r.TruePositive + r.FalsePositive; n > 0 {
		r.Precision = float64(r.TruePositive) / float64(n)
	}
	if n := r.TruePositive + r.FalseNegative; n > 0 {
		r.Recall = float64(r.TruePositive) / float64(n)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r, nil
}

// String is the one-line summary printed by the CLI.
func (r Report) String() string {
	return fmt.Sprintf("accuracy=%.2f precision=%.2f recall=%.2f f1=%.2f (n=%d, tp=%d fp=%d tn=%d fn=%d)",
		r.Accuracy, r.Precision, r.Recall, r.F1, r.Total,
		r.TruePositive, r.FalsePositive, r.TrueNegative, r.FalseNegative)
}
