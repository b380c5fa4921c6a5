// File: task/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package task provides lazily started, single-consumer asynchronous
// computations.
//
// A Task runs its body on its own goroutine, started on the first Await,
// Get or Start. The body receives a *Co frame. To wait for readiness it
// parks the frame in a Waiter slot with Co.Suspend; whoever observes
// readiness calls Waiter.Resume. Nothing else wakes a parked frame, except
// Get, which re-polls the current suspension until the task finishes, and
// Destroy, which cancels it.
package task
