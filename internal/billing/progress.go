package billing

import "time"

// Progress is date-based when the project has both bounds, hours-based otherwise.
// The result is always within [0, 100].
func Progress(project Project, billableHours, billedHours float64, today time.Time) float64 {
	if project.StartDate != nil && project.EndDate != nil {
		return dateProgress(*project.StartDate, *project.EndDate, today)
	}
	if billableHours <= 0 {
		return 0
	}
	return clampPercent(billedHours / billableHours * 100)
}

func dateProgress(start, end, today time.Time) float64 {
	s, e, t := dateOnly(start), dateOnly(end), dateOnly(today)
	switch {
	case t.After(e):
		return 100
	case t.Before(s):
		return 0
	case !e.After(s):
		// single-day or inverted range that today falls on
		return 100
	}
	elapsed := t.Sub(s).Hours()
	total := e.Sub(s).Hours()
	return clampPercent(elapsed / total * 100)
}

func clampPercent(p float64) float64 {
	switch {
	case p != p, p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
