// Package fanout splits a batch into chunks, runs each chunk as an executor
// task, and reassembles the results in submission order.
package fanout

// Partition splits items into at most k contiguous, non-empty chunks whose
// sizes differ by at most one, larger chunks first. It returns nil for empty
// input. Chunks alias items.
func Partition[T any](items []T, k int) [][]T {
	n := len(items)
	if n == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	size, rem := n/k, n%k
	out := make([][]T, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, items[start:end:end])
		start = end
	}
	return out
}
