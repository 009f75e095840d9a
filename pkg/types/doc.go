/*
Package types defines the data model shared by every nbsched package.

# Core Types

Queue side:
  - Task: one row of the external tasks table (id, owner, program, status)
  - TaskStatus: "", Creating, Ready, Running, Finished

Orchestrator side:
  - Workload: a notebook Job as listed from the cluster (id, name, succeeded)
  - Resources: cpu/memory limits applied to a Workload

Admission:
  - Settings: cpu share, memory share and the parallel limit for one cycle

# Naming Scheme

Every object nbsched creates is derived from the task id alone, so any cycle can
rebuild the full picture from the cluster without local state:

	task id 5
	  ├── Job      notebook-05        label id=5
	  └── Service  nb-entrypoint-05   label sid=5, NodePort 31005 -> 8888

Objects whose names lack the prefixes are never touched.
*/
package types
