package engine

import (
	"container/heap"

	"github.com/MKhiriev/go-refsync/models"
)

// uploadOrder returns objects in topological order: a parent present in the
// set always precedes its children. Among objects whose parents are placed,
// the earliest created comes first. Objects on a cycle keep creation order
// at the end.
func uploadOrder(objects []models.Object) []models.Object {
	byKey := make(map[string]int, len(objects))
	for i, obj := range objects {
		byKey[obj.Key] = i
	}

	indegree := make([]int, len(objects))
	children := make(map[int][]int)
	for i, obj := range objects {
		if obj.ParentKey == "" || obj.ParentKey == obj.Key {
			continue
		}
		if p, ok := byKey[obj.ParentKey]; ok {
			indegree[i]++
			children[p] = append(children[p], i)
		}
	}

	ready := &creationHeap{objects: objects}
	for i := range objects {
		if indegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	ordered := make([]models.Object, 0, len(objects))
	placed := make([]bool, len(objects))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		ordered = append(ordered, objects[i])
		placed[i] = true
		for _, c := range children[i] {
			indegree[c]--
			if indegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}

	if len(ordered) < len(objects) {
		rest := &creationHeap{objects: objects}
		for i := range objects {
			if !placed[i] {
				heap.Push(rest, i)
			}
		}
		for rest.Len() > 0 {
			ordered = append(ordered, objects[heap.Pop(rest).(int)])
		}
	}
	return ordered
}

// creationHeap is a min-heap of indexes into objects by local row ID.
type creationHeap struct {
	objects []models.Object
	idx     []int
}

func (h *creationHeap) Len() int { return len(h.idx) }

func (h *creationHeap) Less(i, j int) bool {
	return h.objects[h.idx[i]].ID < h.objects[h.idx[j]].ID
}

func (h *creationHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }

func (h *creationHeap) Push(x any) { h.idx = append(h.idx, x.(int)) }

func (h *creationHeap) Pop() any {
	n := len(h.idx)
	x := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return x
}
