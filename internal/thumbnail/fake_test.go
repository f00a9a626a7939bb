package thumbnail

import (
	"errors"
	"fmt"
	"io"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/geometry"
)

var errFake = errors.New("fake engine failure")

// fakeEngine is a scriptable backend. Handles report the configured size
// and record every call in the engine.
type fakeEngine struct {
	name     string
	availErr error
	formats  backend.FormatSet
	size     geometry.Dimensions
	failOps  map[string]bool
	calls    []string
	open     int
}

func newFakeEngine(width, height int) *fakeEngine {
	return &fakeEngine{
		name: "fake",
		formats: backend.FormatSet{
			backend.FormatPNG:  backend.Read | backend.Write,
			backend.FormatJPEG: backend.Read | backend.Write,
			backend.FormatWebP: backend.Read,
		},
		size:    geometry.Dimensions{Width: width, Height: height},
		failOps: map[string]bool{},
	}
}

func (e *fakeEngine) Name() string { return e.name }
func (e *fakeEngine) Available() error { return e.availErr }
func (e *fakeEngine) SupportedFormats() backend.FormatSet { return e.formats }

func (e *fakeEngine) Open(path string, _ backend.CanvasOptions) (backend.Handle, error) {
	return e.newHandle("open " + path)
}

func (e *fakeEngine) Read(_ []byte, _ backend.CanvasOptions) (backend.Handle, error) {
	return e.newHandle("read")
}

func (e *fakeEngine) newHandle(call string) (backend.Handle, error) {
	e.calls = append(e.calls, call)
	if e.failOps["read"] {
		return nil, errFake
	}
	return e.handle(e.size), nil
}

func (e *fakeEngine) handle(size geometry.Dimensions) *fakeHandle {
	e.open++
	return &fakeHandle{engine: e, size: size}
}

func (e *fakeEngine) do(op, detail string, size geometry.Dimensions) (backend.Handle, error) {
	e.calls = append(e.calls, op+" "+detail)
	if e.failOps[op] {
		return nil, errFake
	}
	return e.handle(size), nil
}

type fakeHandle struct {
	engine *fakeEngine
	size   geometry.Dimensions
	closed bool
}

func (h *fakeHandle) Format() backend.Format { return backend.FormatPNG }
func (h *fakeHandle) Size() geometry.Dimensions { return h.size }

func (h *fakeHandle) Resize(width, height int) (backend.Handle, error) {
	return h.engine.do("resize", fmt.Sprintf("%dx%d", width, height), geometry.Dimensions{Width: width, Height: height})
}

func (h *fakeHandle) Crop(r geometry.Rect) (backend.Handle, error) {
	return h.engine.do("crop", r.String(), r.Dimensions())
}

func (h *fakeHandle) Rotate(degrees float64) (backend.Handle, error) {
	size := h.size
	if int(degrees)%180 != 0 {
		size = geometry.Dimensions{Width: h.size.Height, Height: h.size.Width}
	}
	return h.engine.do("rotate", fmt.Sprintf("%g", degrees), size)
}

func (h *fakeHandle) Flip() (backend.Handle, error) { return h.engine.do("flip", "", h.size) }
func (h *fakeHandle) Flop() (backend.Handle, error) { return h.engine.do("flop", "", h.size) }

func (h *fakeHandle) Encode(w io.Writer, format backend.Format, quality int) error {
	h.engine.calls = append(h.engine.calls, fmt.Sprintf("encode %s %d", format, quality))
	if h.engine.failOps["encode"] {
		return errFake
	}
	_, err := fmt.Fprintf(w, "%s:%s:%d", format, h.size, quality)
	return err
}

func (h *fakeHandle) Close() error {
	if !h.closed {
		h.closed = true
		h.engine.open--
	}
	return nil
}

// lastCall returns the most recent engine call, or "".
func (e *fakeEngine) lastCall() string {
	if len(e.calls) == 0 {
		return ""
	}
	return e.calls[len(e.calls)-1]
}
