package pipeline

import (
	"encoding/json"
	"math"
)

// Prediction is the output of a successful run.
type Prediction struct {
	ResultURL     string  `json:"resultUrl"`
	BuiltUpAreaHa float64 `json:"builtUpAreaHa"`
	GrowthPercent float64 `json:"growthPercent"`
	IoU           float64 `json:"iou"`
	Confidence    float64 `json:"confidence"`
}

// Result is either a Prediction or an error. Failed results serialise to
// {"error": "..."} with no other field.
type Result struct {
	Prediction
	Err error
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Err.Error()})
	}
	return json.Marshal(r.Prediction)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
