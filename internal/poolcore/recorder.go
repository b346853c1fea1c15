package poolcore

import "time"

// Recorder observes pool events for metrics/telemetry without poolcore
// needing to import Prometheus or Redis directly. internal/metrics
// implements this against promauto collectors; internal/telemetry layers
// a Redis publisher on top of a Pool's Stats() instead of this interface.
type Recorder interface {
	// SetCounts reports the current live and idle counts.
	SetCounts(live, idle int)
	// ObserveAcquire reports the outcome ("acquired", "timeout",
	// "cancelled", "shutting_down") and wait duration of one Acquire call.
	ObserveAcquire(outcome string, wait time.Duration)
	// ObserveProducerOpen reports the outcome ("opened", "open_failed") of
	// one producer wakeup.
	ObserveProducerOpen(outcome string)
	// ObserveReap reports how many sessions the reaper closed in one sweep.
	ObserveReap(closed int)
}

// noopRecorder discards every observation; used when a Pool is constructed
// without an explicit Recorder.
type noopRecorder struct{}

func (noopRecorder) SetCounts(int, int)                {}
func (noopRecorder) ObserveAcquire(string, time.Duration) {}
func (noopRecorder) ObserveProducerOpen(string)        {}
func (noopRecorder) ObserveReap(int)                   {}
