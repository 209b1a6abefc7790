// Package protocol drives a simulation engine through the 21-stage
// equilibration schedule.
//
// A [Runner] owns one engine binding and executes stages strictly in
// ascending order. Within a stage the adapter calls are fixed:
// set-temperature, configure-barostat, integrate, read-state. After each
// stage the readback passes through a [Monitor]; a hard divergence ends the
// run with no rollback and no retry, because the physical state after a
// failed stage is not safely re-enterable.
//
// Execution is single-threaded and synchronous. Cancellation is cooperative
// and observed only at stage boundaries; a blocking Integrate call is never
// interrupted mid-flight.
package protocol
