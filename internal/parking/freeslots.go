package parking

import "container/heap"

// freeSlots is a min-heap of free slot numbers. The lowest number is always
// handed out first.
type freeSlots []int

func (f freeSlots) Len() int           { return len(f) }
func (f freeSlots) Less(i, j int) bool { return f[i] < f[j] }
func (f freeSlots) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *freeSlots) Push(x any) {
	*f = append(*f, x.(int))
}

func (f *freeSlots) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}

// newFreeSlots returns an index holding 1..capacity. An ascending slice is
// already a valid heap.
func newFreeSlots(capacity int) *freeSlots {
	f := make(freeSlots, capacity)
	for i := range f {
		f[i] = i + 1
	}
	return &f
}

// take is safe on a nil index, which holds no slots.
func (f *freeSlots) take() (int, bool) {
	if f == nil || f.Len() == 0 {
		return 0, false
	}
	return heap.Pop(f).(int), true
}

func (f *freeSlots) release(number int) {
	heap.Push(f, number)
}
