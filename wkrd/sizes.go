package wkrd

import "sort"

// SizeList records column widths or row heights as they are encountered.
// Indexes without an explicit entry take Default.
type SizeList struct {
	Default float64
	sizes   map[int]float64
}

// Set records the size of index i.
func (l *SizeList) Set(i int, size float64) {
	if i < 0 {
		return
	}
	if l.sizes == nil {
		l.sizes = make(map[int]float64)
	}
	l.sizes[i] = size
}

// Size returns the resolved size of index i.
func (l *SizeList) Size(i int) float64 {
	if v, ok := l.sizes[i]; ok {
		return v
	}
	return l.Default
}

// Explicit returns the number of explicitly set entries.
func (l *SizeList) Explicit() int {
	return len(l.sizes)
}

// SizeRange is a run of consecutive indexes sharing one size.
type SizeRange struct {
	First int
	Last  int
	Size  float64
}

// Compress returns the sizes of indexes [0, n) as runs, merging neighbours
// whose resolved size is equal. Explicit entries at or beyond n extend the
// covered range.
func (l *SizeList) Compress(n int) []SizeRange {
	keys := make([]int, 0, len(l.sizes))
	for i := range l.sizes {
		keys = append(keys, i)
		if i+1 > n {
			n = i + 1
		}
	}
	if n <= 0 {
		return nil
	}
	sort.Ints(keys)

	var out []SizeRange
	add := func(first, last int, size float64) {
		if k := len(out); k > 0 && out[k-1].Size == size && out[k-1].Last+1 == first {
			out[k-1].Last = last
			return
		}
		out = append(out, SizeRange{First: first, Last: last, Size: size})
	}
	next := 0
	for _, i := range keys {
		if i > next {
			add(next, i-1, l.Default)
		}
		add(i, i, l.sizes[i])
		next = i + 1
	}
	if next < n {
		add(next, n-1, l.Default)
	}
	return out
}
