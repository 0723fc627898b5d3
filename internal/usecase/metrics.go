package usecase

import "time"

// Recorder receives use case measurements. infrastructure/metrics implements it.
type Recorder interface {
	ObserveReconstruction(kind string, d time.Duration)
	RecordCache(kind string, hit bool)
	RecordVariance(severity string)
	RecordImmutabilityViolations(n int)
	RecordInvariantFailure(check string)
	RecordAudit(event string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveReconstruction(string, time.Duration) {}
func (nopRecorder) RecordCache(string, bool)                    {}
func (nopRecorder) RecordVariance(string)                       {}
func (nopRecorder) RecordImmutabilityViolations(int)            {}
func (nopRecorder) RecordInvariantFailure(string)               {}
func (nopRecorder) RecordAudit(string)                          {}

// NopRecorder discards every measurement.
var NopRecorder Recorder = nopRecorder{}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder
	}
	return r
}
