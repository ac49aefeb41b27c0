// Package planner turns an input's size, duration and audio bitrate into the
// bitrate targets the encoder is given.
//
// The target total bitrate is the source's average bitrate scaled by the
// target ratio (one half by default); the video budget is what remains after
// the copied audio, never below a fixed floor.
//
//   - BitratePlan (types.go)
//   - Planner, Plan, EstimateOutputBytes (planner.go)
package planner
