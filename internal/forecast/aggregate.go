package forecast

// Accumulate converts new purchases into cumulative ownership starting from
// the initial stock: cumulative[i] = initial + sum(newPurchases[0..i]).
func Accumulate(initial int, newPurchases []int) []int {
	cumulative := make([]int, len(newPurchases))
	running := initial
	for i, n := range newPurchases {
		running += n
		cumulative[i] = running
	}
	return cumulative
}
