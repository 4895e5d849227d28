// Package taskqueue runs work items strictly in order per target while
// bounding concurrency across targets.
//
// Each target has its own FIFO list. Enqueue starts a drain goroutine for a
// target when none is running; the goroutine pops tasks one at a time, holds
// a Gate slot while the task runs, then pauses before the next task. When
// the list is empty the goroutine exits, and the next Enqueue starts a new
// one.
//
// A failing or panicking task is logged and the loop moves on.
package taskqueue
