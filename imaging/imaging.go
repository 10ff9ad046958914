// Package imaging validates instrument screen payloads and writes them as
// PNG or BMP files.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

var (
	// ErrImageDecode reports a payload that is not a decodable image.
	ErrImageDecode = errors.New("imaging: cannot decode image payload")
	// ErrUnsupportedFormat reports an output format other than png or bmp.
	ErrUnsupportedFormat = errors.New("imaging: unsupported format")
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	BMP Format = "bmp"
)

// Formats lists the supported output formats.
var Formats = []Format{PNG, BMP}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case PNG, BMP:
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Ext returns the file extension of f, including the dot.
func (f Format) Ext() string { return "." + string(f) }

func (f Format) String() string { return string(f) }

// Decode parses payload as an image in any registered format.
// Rigol instruments send BMP; PNG is accepted as well.
func Decode(payload []byte) (image.Image, string, error) {
	img, kind, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %d bytes: %w", ErrImageDecode, len(payload), err)
	}

	return img, kind, nil
}

// Encode decodes payload and re-encodes it in format f.
func Encode(payload []byte, f Format) ([]byte, error) {
	img, _, err := Decode(payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch f {
	case PNG:
		err = png.Encode(&buf, img)
	case BMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", f, err)
	}

	return buf.Bytes(), nil
}

// FileSaver writes images to the local filesystem.
type FileSaver struct {
	// DirPerm is the permission of directories created for the output file.
	DirPerm os.FileMode
	// FilePerm is the permission of the output file.
	FilePerm os.FileMode
}

// NewFileSaver returns a FileSaver with 0755 directories and 0644 files.
func NewFileSaver() *FileSaver {
	return &FileSaver{DirPerm: 0o755, FilePerm: 0o644}
}

// Save decodes payload, encodes it as f and writes it to path.
//
// The file appears only once the image has been encoded and fully written;
// on any error nothing is left at path.
func (s *FileSaver) Save(path string, payload []byte, f Format) error {
	data, err := Encode(payload, f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.DirPerm); err != nil {
		return fmt.Errorf("imaging: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".capture-*")
	if err != nil {
		return fmt.Errorf("imaging: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, s.FilePerm)
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("imaging: write %s: %w", path, werr)
	}

	return nil
}
