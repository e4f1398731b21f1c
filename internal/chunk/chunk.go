// Package chunk splits a sequence of n items (tokens, sentences) into
// overlapping windows.
package chunk

type Window struct {
	Index int
	Start int
	End   int
}

func (w Window) Len() int { return w.End - w.Start }

// Windows covers [0, n) with windows of size items that share overlap items
// with their predecessor. When n >= size every window is full: the last one
// is shifted back to end at n. When n < size a single short window is
// returned.
func Windows(n, size, overlap int) []Window {
	if size <= 0 || n <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	step := size - overlap
	windows := make([]Window, 0, (n/step)+1)
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
			if n >= size {
				start = n - size
			}
		}
		windows = append(windows, Window{Index: len(windows), Start: start, End: end})
		if end == n {
			break
		}
	}
	return windows
}

// Stride is Windows expressed with a step instead of an overlap.
func Stride(n, size, step int) []Window {
	if step <= 0 {
		step = size
	}
	return Windows(n, size, size-step)
}
