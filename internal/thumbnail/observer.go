package thumbnail

// Observer records image operation metrics. The metrics package provides
// the implementation so this package does not import Prometheus.
type Observer interface {
	// ObserveOperation records one engine call. operation is one of "read",
	// "resize", "crop", "rotate", "flip", "flop", "save" or "encode".
	ObserveOperation(engine, operation string, durationSeconds float64, err error)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}
