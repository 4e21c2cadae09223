package math

// Maximum calculates the maximum value among two integers
func Maximum(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

//Minimum calculates the minimum value among two integers
func Minimum(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

//Adjustment contains rule of three for calculating an integer given another integer representing a percentage
func Adjustment(a int, b int) int {
	return (a * b / 100)
}

// TargetCount returns how many of total targets a percentage selects, at least one when total is not zero.
// A percentage outside (0,100) selects every target.
func TargetCount(total int, percentage int) int {
	if total == 0 || percentage <= 0 || percentage >= 100 {
		return total
	}
	return Minimum(total, Maximum(1, Adjustment(total, percentage)))
}
