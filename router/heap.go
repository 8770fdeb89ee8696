package router

// openHeap is the A* open set: a binary heap of arena indices ordered by
// overallCost (primary) and routeNodeOffset (tiebreaker), smallest first.
// heapPos tracks each arena index's current position so decrease-key can
// be done by mutating the arena entry and calling heap.Fix.
type openHeap struct {
	arena   *[]arenaNode
	idx     []int
	heapPos map[int]int // arena index -> position within idx
}

func newOpenHeap(arena *[]arenaNode) *openHeap {
	return &openHeap{arena: arena, heapPos: map[int]int{}}
}

func (h *openHeap) Len() int { return len(h.idx) }

func (h *openHeap) Less(i, j int) bool {
	a := (*h.arena)[h.idx[i]]
	b := (*h.arena)[h.idx[j]]
	if a.overallCost != b.overallCost {
		return a.overallCost < b.overallCost
	}
	return a.routeNodeOffset < b.routeNodeOffset
}

func (h *openHeap) Swap(i, j int) {
	h.idx[i], h.idx[j] = h.idx[j], h.idx[i]
	h.heapPos[h.idx[i]] = i
	h.heapPos[h.idx[j]] = j
}

func (h *openHeap) Push(x any) {
	arenaIdx := x.(int)
	h.heapPos[arenaIdx] = len(h.idx)
	h.idx = append(h.idx, arenaIdx)
}

func (h *openHeap) Pop() any {
	n := len(h.idx)
	arenaIdx := h.idx[n-1]
	h.idx = h.idx[:n-1]
	delete(h.heapPos, arenaIdx)
	return arenaIdx
}
