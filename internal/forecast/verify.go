package forecast

import "github.com/Veraticus/adoption-forecast/internal/model"

// ExpectedPositiveFirstYear recomputes, straight from the advance table, the
// year-1 purchases of a positive event in year 1: the whole first cohort plus
// every later cohort's unconditional bucket and each shift-by-k bucket that
// can reach year 1.
func ExpectedPositiveFirstYear(inputs *model.Inputs) int {
	totals := inputs.Advance.Totals()
	if len(totals) == 0 {
		return 0
	}

	expected := totals[0]
	for planIdx := 1; planIdx < len(inputs.Advance); planIdx++ {
		planYear := planIdx + 1
		row := inputs.Advance[planIdx]
		expected += row[model.BucketUnconditional]
		for k := 1; k <= 3; k++ {
			if 1 >= planYear-k {
				expected += row[k]
			}
		}
	}
	return expected
}
