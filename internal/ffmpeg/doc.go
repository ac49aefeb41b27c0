// Package ffmpeg builds and runs the encode command and interprets what
// ffmpeg reports back.
//
//   - builder.go: Request and Build (shared argument skeleton)
//   - executor.go: Start/Task, streaming events and the final ExecResult
//   - progress.go: out_time_ms parsing, percent and ETA tracking
//   - watchdog.go: stall detection on the -progress stream
//   - errors.go: failure classification and EncodeError
//   - retry.go: RetryState, the single thumbnail-drop fallback
package ffmpeg
