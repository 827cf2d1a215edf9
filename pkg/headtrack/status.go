package headtrack

// Status is a lifecycle notification emitted by the session controller.
type Status string

// The full set of statuses a session can emit. Observers must tolerate
// repeated emissions of the same status; only "found" is edge-triggered.
const (
	StatusCamera       Status = "getUserMedia"
	StatusWhitebalance Status = "whitebalance"
	StatusDetecting    Status = "detecting"
	StatusHints        Status = "hints"
	StatusFound        Status = "found"
	StatusRedetecting  Status = "redetecting"
	StatusLost         Status = "lost"
	StatusStopped      Status = "stopped"
)

// StatusSink receives lifecycle notifications from a session.
// Emit is called from the session's poll goroutine and must not block.
type StatusSink interface {
	Emit(status Status)
}

// SinkFunc adapts a function to the StatusSink interface.
type SinkFunc func(Status)

// Emit calls the wrapped function.
func (f SinkFunc) Emit(status Status) { f(status) }

// MultiSink fans one emission out to several sinks in order.
func MultiSink(sinks ...StatusSink) StatusSink {
	return SinkFunc(func(status Status) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(status)
			}
		}
	})
}
