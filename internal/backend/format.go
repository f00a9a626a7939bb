package backend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Decoders for the pure-Go engines
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is a normalized, lower-case image format name
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatWebP    Format = "webp"
	FormatHEIF    Format = "heif"
	FormatAVIF    Format = "avif"
	FormatSVG     Format = "svg"
	FormatPDF     Format = "pdf"
	FormatJXL     Format = "jxl"
)

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	case FormatUnknown:
		return "application/octet-stream"
	default:
		return "image/" + string(f)
	}
}

// ParseFormat normalizes a format or extension name. Matching is
// case-insensitive, a leading dot is ignored, "jpg" becomes "jpeg" and
// "tif" becomes "tiff". Unknown names return an error wrapping
// ErrUnsupportedFormat.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	switch name {
	case "jpg", "jpeg", "jpe":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "heic", "heif":
		return FormatHEIF, nil
	case "png", "gif", "bmp", "webp", "avif", "svg", "pdf", "jxl":
		return Format(name), nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromFilename returns the format selected by a filename's extension.
func FormatFromFilename(filename string) (Format, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(filename))
	}
	return ParseFormat(ext)
}

// Detect identifies an image format from its leading bytes. 32 bytes are
// enough for every signature checked here.
func Detect(header []byte) Format {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return FormatJPEG

	case len(header) >= 8 && header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47:
		return FormatPNG

	case len(header) >= 4 && header[0] == 0x47 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x38:
		return FormatGIF

	case len(header) >= 12 && header[0] == 0x52 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x46 &&
		header[8] == 0x57 && header[9] == 0x45 && header[10] == 0x42 && header[11] == 0x50:
		return FormatWebP

	case len(header) >= 2 && header[0] == 0x42 && header[1] == 0x4D:
		return FormatBMP

	case len(header) >= 4 && ((header[0] == 0x49 && header[1] == 0x49 && header[2] == 0x2A && header[3] == 0x00) ||
		(header[0] == 0x4D && header[1] == 0x4D && header[2] == 0x00 && header[3] == 0x2A)):
		return FormatTIFF

	case len(header) >= 12 && header[4] == 0x66 && header[5] == 0x74 && header[6] == 0x79 && header[7] == 0x70:
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return FormatHEIF
		case "avif", "avis":
			return FormatAVIF
		}

	case len(header) >= 2 && header[0] == 0xFF && header[1] == 0x0A:
		return FormatJXL

	case len(header) >= 12 && header[0] == 0x00 && header[1] == 0x00 && header[2] == 0x00 && header[3] == 0x0C &&
		header[4] == 0x4A && header[5] == 0x58 && header[6] == 0x4C && header[7] == 0x20:
		return FormatJXL

	case len(header) >= 5 && string(header[:5]) == "%PDF-":
		return FormatPDF
	}

	trimmed := strings.TrimSpace(string(header))
	if strings.HasPrefix(trimmed, "<svg") || strings.HasPrefix(trimmed, "<?xml") {
		return FormatSVG
	}

	return FormatUnknown
}

// DetectReader reads the header from r and identifies the format.
func DetectReader(r io.Reader) (Format, error) {
	header := make([]byte, 32)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	return Detect(header[:n]), nil
}

// DetectFile identifies the format of the file at path.
func DetectFile(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer file.Close()

	return DetectReader(file)
}

// Access is a bit set of what an engine can do with a format
type Access uint8

const (
	// Read means the engine can decode the format.
	Read Access = 1 << iota
	// Write means the engine can encode the format.
	Write
)

// FormatSet lists the formats an engine supports
type FormatSet map[Format]Access

// CanRead reports whether f can be decoded.
func (s FormatSet) CanRead(f Format) bool {
	return s[f]&Read != 0
}

// CanWrite reports whether f can be encoded.
func (s FormatSet) CanWrite(f Format) bool {
	return s[f]&Write != 0
}

// Names returns the sorted format names that have the given access.
func (s FormatSet) Names(access Access) []string {
	names := make([]string, 0, len(s))
	for f, a := range s {
		if a&access == access {
			names = append(names, string(f))
		}
	}
	sort.Strings(names)
	return names
}
