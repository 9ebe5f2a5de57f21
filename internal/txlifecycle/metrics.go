package txlifecycle

import "time"

// Recorder receives lifecycle measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	Transition(status string)
	Poll()
	Finished(status string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string)              {}
func (nopRecorder) Poll()                          {}
func (nopRecorder) Finished(string, time.Duration) {}
