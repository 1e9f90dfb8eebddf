package roster

import "math"

// FairnessScore returns a percentage (0-100) of how evenly shifts are spread
// across the given employees, 100 meaning a standard deviation of zero.
// Employees outside the tally count as carrying zero shifts.
func FairnessScore(tally Tally, employeeIDs []string) float64 {
	if len(employeeIDs) == 0 {
		return 100.0
	}

	var sum float64
	for _, id := range employeeIDs {
		sum += float64(tally[id].Total)
	}
	if sum == 0 {
		return 100.0
	}

	mean := sum / float64(len(employeeIDs))
	var varianceSum float64
	for _, id := range employeeIDs {
		diff := float64(tally[id].Total) - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(employeeIDs)))

	score := (1.0 - stdDev/mean) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
