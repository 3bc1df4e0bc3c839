package models

import "math"

// Progress summarizes completed steps.
type Progress struct {
	CompletedCount int `json:"completedCount"`
	TotalSteps     int `json:"totalSteps"`
	Percentage     int `json:"percentage"`
}

// Evaluate computes progress over the canonical step set. Keys outside the
// canonical set are ignored and missing keys count as incomplete.
func Evaluate(completed map[Step]bool) Progress {
	count := 0
	for _, step := range AllSteps {
		if completed[step] {
			count++
		}
	}
	return Progress{
		CompletedCount: count,
		TotalSteps:     TotalSteps,
		Percentage:     int(math.Round(float64(count) / float64(TotalSteps) * 100)),
	}
}
