// Package analysis runs the external grammar analyzer for queued
// requests, one process at a time.
//
// A Dispatcher owns a FIFO queue of Requests and a state machine with
// three states: Idle, Running and Terminated. Nothing happens between
// calls to Tick; each Tick does at most one non-blocking step:
//
//   - Idle: take the oldest request, write its text to a scratch file,
//     start the analyzer on it and move to Running.
//   - Running: if the analyzer has exited, decode its output, hand the
//     report to the request and move back to Idle.
//   - Terminated: do nothing.
//
// Every request gets exactly one OnResult call unless the dispatcher is
// shut down first. Failures (the analyzer missing, a nonzero exit,
// unreadable output) deliver an empty report; requests that also
// implement FailureObserver learn the cause.
//
// Run drives Tick from a ticker for callers without their own event loop:
//
//	d, err := analysis.New(analysis.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	go d.Run(ctx)
//	d.Submit(req)
package analysis
