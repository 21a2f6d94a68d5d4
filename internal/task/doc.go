// Package task is the execution-policy boundary that moves type-erased
// arguments to where a job runs.
//
// Ownership boundary:
// - Job and Policy contracts
// - Inline policy (same goroutine, arguments cloned through descriptors)
// - Pool policy (bounded goroutines, arguments marshalled through parcels)
//
// Scheduling and placement decisions belong to callers.
package task
