package exifrec

import "time"

// Recorder receives per-file events of a batch, for metrics.
type Recorder interface {
	FileProcessed(outcome string)
	AnomalyFound(kind string)
	ExtractionObserved(d time.Duration)
	WriteBackAttempted(ok bool)
}

type NopRecorder struct{}

func (NopRecorder) FileProcessed(string)             {}
func (NopRecorder) AnomalyFound(string)              {}
func (NopRecorder) ExtractionObserved(time.Duration) {}
func (NopRecorder) WriteBackAttempted(bool)          {}
