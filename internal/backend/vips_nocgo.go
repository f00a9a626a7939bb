//go:build !cgo

package backend

import (
	"fmt"
)

// InitVips reports that libvips is not compiled in.
func InitVips() error {
	return fmt.Errorf("%w: built without cgo", ErrUnavailable)
}

// ShutdownVips is a no-op without cgo.
func ShutdownVips() {}

// IsVipsAvailable always returns false without cgo.
func IsVipsAvailable() bool { return false }

type vipsBackend struct{}

// NewVips returns a placeholder that never becomes available.
func NewVips() Backend {
	return vipsBackend{}
}

func (vipsBackend) Name() string { return EngineVips }

func (vipsBackend) Available() error { return InitVips() }

func (vipsBackend) SupportedFormats() FormatSet { return FormatSet{} }

func (vipsBackend) Open(string, CanvasOptions) (Handle, error) { return nil, InitVips() }

func (vipsBackend) Read([]byte, CanvasOptions) (Handle, error) { return nil, InitVips() }
