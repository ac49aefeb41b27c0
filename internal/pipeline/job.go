package pipeline

import (
	"errors"
	"os"
	"sync"
)

// ErrInputNotFound means the input path does not exist or is not a file.
var ErrInputNotFound = errors.New("input file not found")

// Job is a single conversion of Input to Output.
type Job struct {
	Input     string
	Output    string
	Thumbnail string // temporary cover image

	cleanup sync.Once
}

// NewJob returns a job; nothing is created on disk.
func NewJob(input, output, thumbnail string) *Job {
	return &Job{Input: input, Output: output, Thumbnail: thumbnail}
}

// Cleanup removes the temporary thumbnail. Only the first call acts;
// removal errors are ignored.
func (j *Job) Cleanup() {
	j.cleanup.Do(func() {
		if j.Thumbnail != "" {
			_ = os.Remove(j.Thumbnail)
		}
	})
}

// removePartial deletes a failed encode's output, if any.
func removePartial(path string) { _ = os.Remove(path) }
