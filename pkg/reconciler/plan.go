package reconciler

import (
	"sort"

	"github.com/cuemby/nbsched/pkg/types"
)

// Plan is the set of actions one cycle takes
type Plan struct {
	// Create holds the admitted ids in ascending order
	Create []int

	// Delete holds orphan workload ids in ascending order
	Delete []int

	// Pending holds desired ids without a workload that were not admitted
	Pending []int
}

// Diff returns the desired ids that have no workload and the workloads that
// no longer have a queue row, both ascending
func Diff(desired, actual types.IDSet) (missing, orphans []int) {
	for id := range desired {
		if !actual.Has(id) {
			missing = append(missing, id)
		}
	}
	for id := range actual {
		if !desired.Has(id) {
			orphans = append(orphans, id)
		}
	}
	sort.Ints(missing)
	sort.Ints(orphans)
	return missing, orphans
}

// Slots returns how many new workloads may start
func Slots(parallelLimit, running int) int {
	if free := parallelLimit - running; free > 0 {
		return free
	}
	return 0
}

// Admit splits ascending candidates into the first slots ids and the rest
func Admit(candidates []int, slots int) (admitted, pending []int) {
	if slots <= 0 {
		return nil, candidates
	}
	if slots >= len(candidates) {
		return candidates, nil
	}
	return candidates[:slots], candidates[slots:]
}

// MissingEndpoints returns, ascending, the desired ids that have a workload
// but no endpoint
func MissingEndpoints(desired, workloads, endpoints types.IDSet) []int {
	var missing []int
	for id := range desired {
		if workloads.Has(id) && !endpoints.Has(id) {
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	return missing
}

// ComputePlan diffs desired against actual and admits at most slots of the
// missing ids, lowest id first
func ComputePlan(desired, actual types.IDSet, slots int) Plan {
	missing, orphans := Diff(desired, actual)
	create, pending := Admit(missing, slots)
	return Plan{Create: create, Delete: orphans, Pending: pending}
}
