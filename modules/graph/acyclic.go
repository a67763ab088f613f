package graph

import (
	"fmt"

	"github.com/gammazero/deque"
)

// TopologicalOrder returns the vertices in dependency order with Kahn's
// algorithm. Vertices sitting on a cycle, or only reachable through one,
// are returned separately as leftovers.
func (b *Batch) TopologicalOrder() (order []int, leftovers []int) {
	remaining := make([]int32, b.VertexCount)
	copy(remaining, b.ParentCountArray)

	var queue deque.Deque[int]
	for v := 0; v < b.VertexCount; v++ {
		if remaining[v] == 0 {
			queue.PushBack(v)
		}
	}

	order = make([]int, 0, b.VertexCount)
	for queue.Len() > 0 {
		v := queue.PopFront()
		order = append(order, v)
		start, end := b.EdgeRange(v)
		for e := start; e < end; e++ {
			target := b.EdgeArray[e]
			remaining[target]--
			if remaining[target] == 0 {
				queue.PushBack(int(target))
			}
		}
	}

	if len(order) == b.VertexCount {
		return order, nil
	}
	for v := range remaining {
		if remaining[v] > 0 {
			leftovers = append(leftovers, v)
		}
	}
	return order, leftovers
}

// CheckAndAcyclic verifies that no AND vertex depends on itself. Such a vertex
// can never see all of its parents relax, so it stays at Infinity. OR vertices
// on cycles are fine.
func (b *Batch) CheckAndAcyclic() error {
	_, leftovers := b.TopologicalOrder()
	if len(leftovers) == 0 {
		return nil
	}

	include := make([]bool, b.VertexCount)
	for _, v := range leftovers {
		include[v] = true
	}

	for _, component := range b.stronglyConnected(include) {
		if len(component) == 1 && !b.hasSelfLoop(component[0]) {
			continue
		}
		for _, v := range component {
			if b.andInAnyInstance(v) {
				return fmt.Errorf("%w: vertex %v is on a cycle of %v vertices", ErrAndCycle, v, len(component))
			}
		}
	}
	return nil
}

func (b *Batch) andInAnyInstance(v int) bool {
	for g := 0; g < b.GraphCount; g++ {
		if b.IsAnd(g, v) {
			return true
		}
	}
	return false
}

func (b *Batch) hasSelfLoop(v int) bool {
	start, end := b.EdgeRange(v)
	for e := start; e < end; e++ {
		if int(b.EdgeArray[e]) == v {
			return true
		}
	}
	return false
}

// stronglyConnected is Tarjan's algorithm with an explicit call stack, limited
// to the included vertices
func (b *Batch) stronglyConnected(include []bool) [][]int {
	type frame struct {
		v, e, end int
	}

	index := make([]int, b.VertexCount) // 0 is unvisited
	lowlink := make([]int, b.VertexCount)
	onStack := make([]bool, b.VertexCount)
	var stack []int
	var result [][]int
	next := 1

	visit := func(v int) frame {
		index[v], lowlink[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		start, end := b.EdgeRange(v)
		return frame{v: v, e: start, end: end}
	}

	for root := 0; root < b.VertexCount; root++ {
		if !include[root] || index[root] != 0 {
			continue
		}
		calls := []frame{visit(root)}
		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			if top.e < top.end {
				w := int(b.EdgeArray[top.e])
				top.e++
				if !include[w] {
					continue
				}
				if index[w] == 0 {
					calls = append(calls, visit(w))
				} else if onStack[w] && index[w] < lowlink[top.v] {
					lowlink[top.v] = index[w]
				}
				continue
			}

			v := top.v
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].v
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
			if lowlink[v] == index[v] {
				var component []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					component = append(component, w)
					if w == v {
						break
					}
				}
				result = append(result, component)
			}
		}
	}
	return result
}

// Reachable marks the vertices of instance g that some source can reach,
// ignoring AND semantics
func (b *Batch) Reachable(g int) []bool {
	reached := make([]bool, b.VertexCount)
	var queue deque.Deque[int]
	for _, s := range b.SourceArray[g] {
		if !reached[s] {
			reached[s] = true
			queue.PushBack(int(s))
		}
	}
	for queue.Len() > 0 {
		v := queue.PopFront()
		start, end := b.EdgeRange(v)
		for e := start; e < end; e++ {
			target := b.EdgeArray[e]
			if !reached[target] {
				reached[target] = true
				queue.PushBack(int(target))
			}
		}
	}
	return reached
}
