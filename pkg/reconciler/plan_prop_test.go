package reconciler

import (
	"sort"
	"testing"

	"github.com/cuemby/nbsched/pkg/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genIDs() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 60))
}

func Test_PlanProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("creates are desired ids without a workload", prop.ForAll(
		func(desired, actual []int, slots int) bool {
			d, a := types.NewIDSet(desired...), types.NewIDSet(actual...)
			plan := ComputePlan(d, a, slots)
			for _, id := range plan.Create {
				if !d.Has(id) || a.Has(id) {
					return false
				}
			}
			return true
		},
		genIDs(), genIDs(), gen.IntRange(0, 10),
	))

	properties.Property("deletes are exactly the workloads without a row", prop.ForAll(
		func(desired, actual []int, slots int) bool {
			d, a := types.NewIDSet(desired...), types.NewIDSet(actual...)
			plan := ComputePlan(d, a, slots)

			deleted := types.NewIDSet(plan.Delete...)
			for id := range a {
				if d.Has(id) == deleted.Has(id) {
					return false
				}
			}
			return len(deleted) == len(plan.Delete)
		},
		genIDs(), genIDs(), gen.IntRange(0, 10),
	))

	properties.Property("admission never exceeds the slots", prop.ForAll(
		func(desired, actual []int, slots int) bool {
			plan := ComputePlan(types.NewIDSet(desired...), types.NewIDSet(actual...), slots)
			return len(plan.Create) <= slots
		},
		genIDs(), genIDs(), gen.IntRange(0, 10),
	))

	properties.Property("admitted ids precede every pending id", prop.ForAll(
		func(desired, actual []int, slots int) bool {
			plan := ComputePlan(types.NewIDSet(desired...), types.NewIDSet(actual...), slots)
			if !sort.IntsAreSorted(plan.Create) || !sort.IntsAreSorted(plan.Pending) {
				return false
			}
			if len(plan.Create) > 0 && len(plan.Pending) > 0 {
				return plan.Create[len(plan.Create)-1] < plan.Pending[0]
			}
			return true
		},
		genIDs(), genIDs(), gen.IntRange(0, 10),
	))

	properties.Property("a converged state plans nothing", prop.ForAll(
		func(ids []int, slots int) bool {
			s := types.NewIDSet(ids...)
			plan := ComputePlan(s, s, slots)
			return len(plan.Create) == 0 && len(plan.Delete) == 0 && len(plan.Pending) == 0
		},
		genIDs(), gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

func Test_MissingEndpointsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("healed ids are desired, have a workload and lack an endpoint", prop.ForAll(
		func(desired, workloads, endpoints []int) bool {
			d := types.NewIDSet(desired...)
			w := types.NewIDSet(workloads...)
			e := types.NewIDSet(endpoints...)

			missing := types.NewIDSet(MissingEndpoints(d, w, e)...)
			for id := range d {
				want := w.Has(id) && !e.Has(id)
				if missing.Has(id) != want {
					return false
				}
			}
			return len(missing) <= len(d)
		},
		genIDs(), genIDs(), genIDs(),
	))

	properties.TestingRun(t)
}
