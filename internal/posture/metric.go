package posture

import "github.com/golang/geo/r3"

// Metric is one measured posture angle and its interpretation.
type Metric struct {
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	Value          float64 `json:"value"`
	Status         Status  `json:"status"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

// advice is the fixed text attached to a metric for one status.
type advice struct {
	description    string
	recommendation string
}

// metricDef describes how a measured angle becomes a Metric.
type metricDef struct {
	key   string
	label string
	text  map[Status]advice
}

// measure rounds the angle to one decimal, classifies it against the
// thresholds for its view and attaches the matching text.
func (d metricDef) measure(angle float64, table map[string]Thresholds) Metric {
	value := roundTenth(angle)
	status := Classify(value, table[d.key])
	text := d.text[status]

	return Metric{
		Key:            d.key,
		Label:          d.label,
		Value:          value,
		Status:         status,
		Description:    text.description,
		Recommendation: text.recommendation,
	}
}

// mid returns the midpoint of two landmarks by index.
func mid(points []r3.Vector, a, b int) r3.Vector {
	return Midpoint(points[a], points[b])
}
