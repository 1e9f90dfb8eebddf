package roster

// Counts tracks how many shifts of each kind an employee is carrying: the
// run's placements plus the historical totals carried in from previously
// published schedules.
type Counts struct {
	Total    int `json:"total"`
	Nights   int `json:"nights"`
	Weekends int `json:"weekends"`
}

// Tally is the running per-employee placement state threaded through the
// solver. Keeping it an explicit value keeps the scoring pure: same tally,
// same candidates, same scores.
type Tally map[string]Counts

// Add records one placement for an employee.
func (t Tally) Add(employeeID string, night, weekend bool) {
	c := t[employeeID]
	c.Total++
	if night {
		c.Nights++
	}
	if weekend {
		c.Weekends++
	}
	t[employeeID] = c
}

// Clone returns an independent copy.
func (t Tally) Clone() Tally {
	out := make(Tally, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
