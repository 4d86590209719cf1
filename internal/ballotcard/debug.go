package ballotcard

import "ballotscan/pkg/geometry"

// DebugSink receives annotations from the detection pipeline. Rendering a
// debug image from these calls is an external collaborator's job; this
// package only ever calls a sink, never draws.
type DebugSink interface {
	Rect(label string, r geometry.Rect)
	Segment(label string, s geometry.Segment)
	Point(label string, p geometry.Point2D)
}

// NoopDebugSink discards every annotation. Used by callers that don't need
// visual diagnostics.
type NoopDebugSink struct{}

func (NoopDebugSink) Rect(string, geometry.Rect)       {}
func (NoopDebugSink) Segment(string, geometry.Segment) {}
func (NoopDebugSink) Point(string, geometry.Point2D)   {}
