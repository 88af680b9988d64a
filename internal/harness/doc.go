// Package harness runs the configured test cases against the broker.
//
// Each selected test moves through four phases in order:
//
//	Setup    drain the cleanup queues, run the DB pre-hook, enable tracing
//	Execute  put the input message, then wait the fixed timeout
//	Analyze  capture the trace, fetch and compare every expected output,
//	         check the queues that must stay empty
//	Cleanup  run the DB post-hook
//
// A test that is not selected takes the Skipped path: nothing external is
// touched but its result slots are still consumed, so slot numbers do not
// depend on the selection.
//
// Assertion failures and collaborator errors (DB hooks, trace commands) are
// recorded as findings and the run continues. A missing input message or a
// transport failure ends the run with a *FatalError.
package harness
