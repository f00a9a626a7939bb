package thumbnail

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/filesystem"
	"thumbnailer/internal/geometry"
	"thumbnailer/internal/logging"
)

// State is the lifecycle stage of a session.
type State int

const (
	// StateEmpty means no image has been read yet.
	StateEmpty State = iota
	// StateLoaded means an image was read and not yet changed.
	StateLoaded
	// StateTransformed means at least one geometry operation succeeded.
	StateTransformed
	// StateSaved means the current image was written to disk.
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateTransformed:
		return "transformed"
	case StateSaved:
		return "saved"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Rotation directions accepted by RotateImage
const (
	Clockwise        = "CW"
	CounterClockwise = "CCW"
)

// Thumbnail is an image session. It owns one engine handle and is not safe
// for concurrent use; run independent sessions for parallel work. Call
// Close when done.
type Thumbnail struct {
	opts   Options
	engine backend.Backend

	handle     backend.Handle
	dims       geometry.Dimensions
	format     backend.Format
	filename   string
	dataStream bool
	state      State

	errs []string
}

// New creates an empty session on the first available engine in
// opts.Engines.
func New(opts Options) (*Thumbnail, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cands, err := backend.Candidates(opts.Engines)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	engine, err := backend.Select(cands)
	if err != nil {
		logging.Error("No image engine available (tried %s)", strings.Join(engineNames(cands), ", "))
		return nil, fmt.Errorf("%w: %w", ErrOperationFailure, err)
	}

	return newSession(engine, opts), nil
}

// NewWithBackend creates an empty session on a specific engine.
func NewWithBackend(engine backend.Backend, opts Options) (*Thumbnail, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: %w", ErrOperationFailure, backend.ErrNoEngine)
	}
	if err := engine.Available(); err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", ErrOperationFailure, backend.ErrNoEngine, engine.Name(), err)
	}
	return newSession(engine, opts), nil
}

func newSession(engine backend.Backend, opts Options) *Thumbnail {
	opts.Engines = append([]string(nil), opts.Engines...)
	logging.Debug("Thumbnail session created on engine %s", engine.Name())
	return &Thumbnail{opts: opts, engine: engine}
}

// Create creates a session and reads filename into it. An empty filename
// returns an empty session.
func Create(filename string, opts Options) (*Thumbnail, error) {
	t, err := New(opts)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		return t, nil
	}
	if err := t.ReadImage(filename); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// CreateFromData creates a session from an in-memory image.
func CreateFromData(data []byte, opts Options) (*Thumbnail, error) {
	t, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := t.ReadData(data); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the engine handle. The error history is kept.
func (t *Thumbnail) Close() error {
	if t.handle == nil {
		return nil
	}
	err := t.handle.Close()
	t.handle = nil
	t.state = StateEmpty
	t.dims = geometry.Dimensions{}
	t.format = backend.FormatUnknown
	return err
}

// ReadImage decodes the file at path, replacing any current image.
func (t *Thumbnail) ReadImage(path string) error {
	if path == "" {
		return t.fail(ErrInvalidArgument, "filename must not be empty")
	}

	retry := filesystem.DefaultRetryConfig()
	info, err := filesystem.StatWithRetry(path, retry)
	if err != nil {
		return t.fail(ErrOperationFailure, "the image location of %q is unreadable: %w", path, err)
	}
	if info.IsDir() {
		return t.fail(ErrOperationFailure, "the image location of %q is a directory", path)
	}

	file, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		return t.fail(ErrOperationFailure, "the image location of %q is unreadable: %w", path, err)
	}
	format, err := backend.DetectReader(file)
	file.Close()
	if err != nil {
		return t.fail(ErrOperationFailure, "the image location of %q is unreadable: %w", path, err)
	}
	if err := t.checkReadable(path, format); err != nil {
		return err
	}

	start := time.Now()
	h, err := t.engine.Open(path, t.opts.canvas())
	t.observe("read", start, err)
	if err != nil {
		return t.fail(ErrOperationFailure, "unable to read image %q: %w", path, err)
	}

	t.load(h, path, false)
	return nil
}

// ReadData decodes an in-memory image, replacing any current image.
func (t *Thumbnail) ReadData(data []byte) error {
	if len(data) == 0 {
		return t.fail(ErrInvalidArgument, "image data must not be empty")
	}

	if err := t.checkReadable("data stream", backend.Detect(data)); err != nil {
		return err
	}

	start := time.Now()
	h, err := t.engine.Read(data, t.opts.canvas())
	t.observe("read", start, err)
	if err != nil {
		return t.fail(ErrOperationFailure, "unable to read image data: %w", err)
	}

	t.load(h, "", true)
	return nil
}

func (t *Thumbnail) checkReadable(name string, format backend.Format) error {
	if format == backend.FormatUnknown {
		return t.fail(ErrOperationFailure, "file %q is not a valid image", name)
	}
	if !t.engine.SupportedFormats().CanRead(format) {
		return t.fail(ErrOperationFailure, "image engine %s does not support reading %q images", t.engine.Name(), format)
	}
	return nil
}

func (t *Thumbnail) load(h backend.Handle, filename string, dataStream bool) {
	if t.handle != nil {
		t.handle.Close()
	}
	t.handle = h
	t.dims = h.Size()
	t.format = h.Format()
	t.filename = filename
	t.dataStream = dataStream
	t.state = StateLoaded

	logging.Debug("Thumbnail loaded %s: %s %s via %s", t.describe(), t.format, t.dims, t.engine.Name())
}

// Resize scales the image proportionally to fit within maxWidth x
// maxHeight. A zero bound leaves that axis unconstrained. Unless ResizeUp
// is set the image never grows.
func (t *Thumbnail) Resize(maxWidth, maxHeight int) error {
	if maxWidth < 0 || maxHeight < 0 {
		return t.fail(ErrInvalidArgument, "resize bounds %dx%d must not be negative", maxWidth, maxHeight)
	}
	if err := t.requireImage("resize"); err != nil {
		return err
	}

	return t.resizeTo(t.ScaledDimensions(geometry.MaxBox(maxWidth, maxHeight)))
}

// ResizePercent scales both axes by percent. Zero is a no-op. Unless
// ResizeUp is set percentages above 100 are treated as 100.
func (t *Thumbnail) ResizePercent(percent int) error {
	if percent < 0 {
		return t.fail(ErrInvalidArgument, "percent %d must not be negative", percent)
	}
	if err := t.requireImage("resize"); err != nil {
		return err
	}
	if percent == 0 {
		return nil
	}

	return t.resizeTo(t.ScaledDimensions(geometry.ByPercent(percent)))
}

// AdaptiveResize scales the image to cover width x height and then crops
// the overflow from the center, producing exactly width x height (or the
// current size on an axis that is smaller, unless ResizeUp is set).
func (t *Thumbnail) AdaptiveResize(width, height int) error {
	if width <= 0 || height <= 0 {
		return t.fail(ErrInvalidArgument, "adaptive resize bounds %dx%d must be greater than zero", width, height)
	}
	if err := t.requireImage("resize"); err != nil {
		return err
	}

	if err := t.resizeTo(t.ScaledDimensions(geometry.StrictFitBox(width, height))); err != nil {
		return err
	}

	// The scaled image may still be smaller than the requested box.
	boxW, boxH := width, height
	if !t.opts.ResizeUp {
		boxW, boxH = geometry.ClampToCurrent(t.dims, width, height)
	}

	rect := geometry.PlanAdaptiveCrop(t.dims, boxW, boxH)
	if rect.Dimensions() == t.dims {
		return nil
	}
	return t.apply("crop", func(h backend.Handle) (backend.Handle, error) {
		return h.Crop(rect)
	})
}

// ResizeSpec applies spec with Resize, ResizePercent or AdaptiveResize.
func (t *Thumbnail) ResizeSpec(spec geometry.Spec) error {
	switch spec.Kind {
	case geometry.KindMaxBox:
		return t.Resize(spec.MaxWidth, spec.MaxHeight)
	case geometry.KindPercent:
		return t.ResizePercent(spec.Percent)
	case geometry.KindStrictFit:
		return t.AdaptiveResize(spec.MaxWidth, spec.MaxHeight)
	}
	return t.fail(ErrInvalidArgument, "unknown resize kind %s", spec.Kind)
}

// ScaledDimensions returns the size spec scales the current image to, with
// the ResizeUp guard applied. For KindStrictFit this is the size before the
// overflow is cropped.
func (t *Thumbnail) ScaledDimensions(spec geometry.Spec) geometry.Dimensions {
	if !t.opts.ResizeUp {
		switch spec.Kind {
		case geometry.KindPercent:
			spec.Percent = min(spec.Percent, 100)
		default:
			spec.MaxWidth, spec.MaxHeight = geometry.ClampToCurrent(t.dims, spec.MaxWidth, spec.MaxHeight)
		}
	}
	return geometry.Compute(t.dims, spec)
}

func (t *Thumbnail) resizeTo(target geometry.Dimensions) error {
	if target == t.dims {
		t.state = StateTransformed
		return nil
	}
	return t.apply("resize", func(h backend.Handle) (backend.Handle, error) {
		return h.Resize(target.Width, target.Height)
	})
}

// CropImage cuts a width x height region at (x, y). The region is clamped
// into the image, so out-of-range offsets and sizes never fail.
func (t *Thumbnail) CropImage(width, height, x, y int) error {
	if width <= 0 || height <= 0 {
		return t.fail(ErrInvalidArgument, "crop size %dx%d must be greater than zero", width, height)
	}
	if err := t.requireImage("crop"); err != nil {
		return err
	}

	rect := geometry.PlanCrop(t.dims, width, height, x, y)
	return t.apply("crop", func(h backend.Handle) (backend.Handle, error) {
		return h.Crop(rect)
	})
}

// CropImageFromCenter cuts a width x height region from the center. A
// height of zero crops a square.
func (t *Thumbnail) CropImageFromCenter(width, height int) error {
	if width <= 0 || height < 0 {
		return t.fail(ErrInvalidArgument, "center crop size %dx%d is invalid", width, height)
	}
	if err := t.requireImage("crop"); err != nil {
		return err
	}

	rect := geometry.PlanCenterCrop(t.dims, width, height)
	return t.apply("crop", func(h backend.Handle) (backend.Handle, error) {
		return h.Crop(rect)
	})
}

// RotateImage turns the image a quarter turn. direction is Clockwise or
// CounterClockwise, case-insensitive.
func (t *Thumbnail) RotateImage(direction string) error {
	switch strings.ToUpper(strings.TrimSpace(direction)) {
	case Clockwise:
		return t.RotateImageNDegrees(90)
	case CounterClockwise:
		return t.RotateImageNDegrees(-90)
	}
	return t.fail(ErrInvalidArgument, "rotation direction %q must be %s or %s", direction, Clockwise, CounterClockwise)
}

// RotateImageNDegrees turns the image clockwise by degrees. Negative values
// turn counter-clockwise. Angles that are not a multiple of 90 grow the
// canvas.
func (t *Thumbnail) RotateImageNDegrees(degrees float64) error {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return t.fail(ErrInvalidArgument, "rotation of %v degrees is not a number", degrees)
	}
	if err := t.requireImage("rotate"); err != nil {
		return err
	}

	return t.apply("rotate", func(h backend.Handle) (backend.Handle, error) {
		return h.Rotate(degrees)
	})
}

// FlipImage mirrors the image vertically.
func (t *Thumbnail) FlipImage() error {
	if err := t.requireImage("flip"); err != nil {
		return err
	}
	return t.apply("flip", backend.Handle.Flip)
}

// FlopImage mirrors the image horizontally.
func (t *Thumbnail) FlopImage() error {
	if err := t.requireImage("flop"); err != nil {
		return err
	}
	return t.apply("flop", backend.Handle.Flop)
}

// apply runs one engine transform and commits the result only on success,
// so a failed call leaves the image and its dimensions untouched.
func (t *Thumbnail) apply(op string, fn func(backend.Handle) (backend.Handle, error)) error {
	start := time.Now()
	next, err := fn(t.handle)
	t.observe(op, start, err)
	if err != nil {
		return t.fail(ErrOperationFailure, "unable to %s the image: %w", op, err)
	}

	t.handle.Close()
	t.handle = next
	before := t.dims
	t.dims = next.Size()
	t.state = StateTransformed

	logging.Debug("Thumbnail %s %s: %s -> %s", op, t.describe(), before, t.dims)
	return nil
}

// Save writes the image to filename in the format selected by its
// extension. An empty filename overwrites the source file. The output is
// written to a temporary file and renamed into place, so a failed encode
// leaves no partial file behind.
func (t *Thumbnail) Save(filename string) error {
	if err := t.requireImage("save"); err != nil {
		return err
	}
	if filename == "" {
		filename = t.filename
	}
	if filename == "" {
		return t.fail(ErrInvalidArgument, "no filename given for an image read from data")
	}

	format, err := backend.FormatFromFilename(filename)
	if err != nil {
		return t.fail(ErrOperationFailure, "cannot save %q: %w", filename, err)
	}
	if !t.engine.SupportedFormats().CanWrite(format) {
		return t.fail(ErrOperationFailure, "image engine %s does not support %q image types", t.engine.Name(), strings.ToUpper(string(format)))
	}

	dir := filepath.Dir(filename)
	if err := filesystem.CheckWritable(dir); err != nil {
		if !t.opts.CorrectPermissions {
			return t.fail(ErrOperationFailure, "the given directory is not writable: %s: %w", filename, err)
		}
		if err := filesystem.CorrectPermissions(dir); err != nil {
			return t.fail(ErrOperationFailure, "the given directory is not writable, and could not correct permissions: %s: %w", filename, err)
		}
	}

	start := time.Now()
	err = t.writeFile(filename, format)
	t.observe("save", start, err)
	if err != nil {
		return t.fail(ErrOperationFailure, "unable to save image with the given format: %w", err)
	}

	t.state = StateSaved
	logging.Debug("Thumbnail saved %s as %s (%s)", filename, format, t.dims)
	return nil
}

func (t *Thumbnail) writeFile(filename string, format backend.Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".thumbnail-*")
	if err != nil {
		return err
	}

	err = t.handle.Encode(tmp, format, t.opts.quality())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logging.Warn("Failed to remove partial thumbnail %s: %v", tmp.Name(), removeErr)
		}
		return err
	}
	return nil
}

// Encode streams the image to w. FormatUnknown keeps the source format.
func (t *Thumbnail) Encode(w io.Writer, format backend.Format) error {
	if err := t.requireImage("encode"); err != nil {
		return err
	}
	if format == backend.FormatUnknown {
		format = t.format
	}
	if !t.engine.SupportedFormats().CanWrite(format) {
		return t.fail(ErrOperationFailure, "image engine %s does not support %q image types", t.engine.Name(), strings.ToUpper(string(format)))
	}

	start := time.Now()
	err := t.handle.Encode(w, format, t.opts.quality())
	t.observe("encode", start, err)
	if err != nil {
		return t.fail(ErrOperationFailure, "unable to encode image as %s: %w", format, err)
	}
	return nil
}

func (t *Thumbnail) requireImage(op string) error {
	if t.handle == nil {
		return t.record(fmt.Errorf("%w: cannot %s", ErrNoImage, op))
	}
	return nil
}

// fail builds an error wrapping kind, records it in the history and
// returns it.
func (t *Thumbnail) fail(kind error, format string, args ...any) error {
	return t.record(fmt.Errorf("%w: "+format, append([]any{kind}, args...)...))
}

func (t *Thumbnail) record(err error) error {
	t.errs = append(t.errs, err.Error())
	if errors.Is(err, ErrInvalidArgument) {
		logging.Debug("Thumbnail %s: %v", t.describe(), err)
	} else {
		logging.Warn("Thumbnail %s: %v", t.describe(), err)
	}
	return err
}

func (t *Thumbnail) observe(op string, start time.Time, err error) {
	if defaultObserver != nil {
		defaultObserver.ObserveOperation(t.engine.Name(), op, time.Since(start).Seconds(), err)
	}
}

func (t *Thumbnail) describe() string {
	switch {
	case t.filename != "":
		return filepath.Base(t.filename)
	case t.dataStream:
		return "<data>"
	default:
		return "<empty>"
	}
}

// Dimensions returns the current image size.
func (t *Thumbnail) Dimensions() geometry.Dimensions { return t.dims }

// Format returns the format of the source image.
func (t *Thumbnail) Format() backend.Format { return t.format }

// Filename returns the source file, or the name set with SetFilename.
func (t *Thumbnail) Filename() string { return t.filename }

// SetFilename sets the default target used by Save("").
func (t *Thumbnail) SetFilename(filename string) { t.filename = filename }

// IsDataStream reports whether the image was read from memory.
func (t *Thumbnail) IsDataStream() bool { return t.dataStream }

// Engine returns the name of the session's image engine.
func (t *Thumbnail) Engine() string { return t.engine.Name() }

// SupportedFormats returns what the session's engine can read and write.
func (t *Thumbnail) SupportedFormats() backend.FormatSet { return t.engine.SupportedFormats() }

// Options returns a copy of the session options.
func (t *Thumbnail) Options() Options {
	opts := t.opts
	opts.Engines = append([]string(nil), t.opts.Engines...)
	return opts
}

// State returns the lifecycle stage.
func (t *Thumbnail) State() State { return t.state }

// LastError returns the most recent error message, or "" if none.
func (t *Thumbnail) LastError() string {
	if len(t.errs) == 0 {
		return ""
	}
	return t.errs[len(t.errs)-1]
}

// Errors returns every error message in the order they occurred.
func (t *Thumbnail) Errors() []string {
	return append([]string(nil), t.errs...)
}

// HasErrors reports whether any operation has failed.
func (t *Thumbnail) HasErrors() bool { return len(t.errs) > 0 }

func engineNames(cands []backend.Backend) []string {
	names := make([]string, len(cands))
	for i, b := range cands {
		names[i] = b.Name()
	}
	return names
}
