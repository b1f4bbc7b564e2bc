// Package worker provides a generic bounded worker pool. The client uses it
// to run message handlers off the connection read loop: submissions never
// block, overflow drops the item with ErrQueueFull, and handler panics are
// recovered inside the pool so one bad handler cannot kill a worker.
package worker
