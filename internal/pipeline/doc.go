// Package pipeline runs conversions: one Converter per invocation, one Job
// per input.
//
// Per input: validate → probe → thumbnail → plan → encode (with the
// thumbnail-drop retry) → report. The job's temporary thumbnail is removed
// on every exit path, and a failed encode never leaves a partial output.
// Run drives a batch of inputs (files or directories) sequentially and
// returns aggregate RunStats.
package pipeline
