// Package compute holds the per-step work functions applied by workers.
package compute

// Step advances a worker's progress counter by one unit of work.
type Step func(progress int) int

// Progress bounds. A counter outside [LowerLimit, UpperLimit] is finished.
const (
	LowerLimit = -100
	UpperLimit = 100
)

// Increment returns v+1.
func Increment(v int) int {
	return v + 1
}

// Decrement returns v-1.
func Decrement(v int) int {
	return v - 1
}

// Finished reports whether progress has left the working range.
func Finished(progress int) bool {
	return progress < LowerLimit || progress > UpperLimit
}

// ForIndex returns the step assigned to the zero-based worker index:
// even indices count down, odd indices count up.
func ForIndex(index int) Step {
	if index%2 == 1 {
		return Increment
	}
	return Decrement
}
