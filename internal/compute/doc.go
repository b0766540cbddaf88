// Package compute provides execution backends for index-parallel numeric work.
//
// Two backends are available:
//
//   - CPU: splits the index range into contiguous chunks, one goroutine per chunk
//   - Serial: runs every index on the calling goroutine
//
// Solvers use the backend to assemble per-period Jacobian blocks and to run the
// household backward step across income states:
//
//	backend := compute.NewCPUBackend(4)
//	backend.ParallelFor(len(blocks), func(t int) {
//	    blocks[t] = linearize(t)
//	})
//
// Every index owns its output slot, so results are identical for any backend
// and any number of workers.
package compute
