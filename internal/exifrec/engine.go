package exifrec

import (
	"exifrec-go/internal/detect"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
)

// Engine turns a fresh snapshot into a reviewable change set: anomaly
// detection, then inference, then a diff against the accepted snapshot.
// It holds no state of its own and is safe for concurrent use.
type Engine struct {
	detectors *detect.Set
	pipeline  *infer.Pipeline
}

func NewEngine(detectors *detect.Set, pipeline *infer.Pipeline) *Engine {
	return &Engine{detectors: detectors, pipeline: pipeline}
}

// Analysis is everything the engine learned about one snapshot.
type Analysis struct {
	Snapshot  *media.Snapshot
	Anomalies []detect.Anomaly
	Inference *infer.Result
	ChangeSet *diff.ChangeSet
}

// Analyze reconciles snap against accepted, the snapshot accepted under
// sequence acceptedSeq (nil and 0 for a file seen for the first time).
// siblings are snapshots of files before snap in program order.
func (e *Engine) Analyze(snap, accepted *media.Snapshot, acceptedSeq int64, siblings []*media.Snapshot) *Analysis {
	anomalies := e.detectors.Run(snap)
	res := e.pipeline.Infer(snap, anomalies, siblings)
	cs := diff.Diff(accepted, snap, res)
	cs.BaseSeq = acceptedSeq
	return &Analysis{
		Snapshot:  snap,
		Anomalies: anomalies,
		Inference: res,
		ChangeSet: cs,
	}
}
