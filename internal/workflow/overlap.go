package workflow

import (
	"github.com/weftlabs/weft/pkg/models"
)

// PlanLanes partitions tasks into dispatch lanes. Tasks whose declared
// target paths overlap, directly or transitively, land in the same lane
// and are executed sequentially; distinct lanes may run concurrently.
// This is checked before scheduling so overlapping writers never race to
// a last-writer-wins outcome.
func PlanLanes(tasks []*models.Task) [][]*models.Task {
	n := len(tasks)
	if n == 0 {
		return nil
	}

	// Union-find over task indices keyed by path overlap.
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if tasks[i].OverlapsWith(tasks[j]) {
				union(i, j)
			}
		}
	}

	// Group by root, preserving task order within and across lanes.
	laneIndex := make(map[int]int)
	var lanes [][]*models.Task
	for i, t := range tasks {
		root := find(i)
		idx, ok := laneIndex[root]
		if !ok {
			idx = len(lanes)
			laneIndex[root] = idx
			lanes = append(lanes, nil)
		}
		lanes[idx] = append(lanes[idx], t)
	}
	return lanes
}
