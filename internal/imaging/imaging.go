package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/CangTianYi/CS3331/internal/model"
)

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 1024

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxUploadSize bounds the bytes read from an upload.
const MaxUploadSize = 5 << 20

// AllowedMIME maps accepted input MIME types to their default extension.
var AllowedMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data []byte
	MIME string
}

// Process reads image data, validates the format by sniffing bytes and
// downscales it if larger than MaxDimension. Images already within bounds are
// returned byte for byte; downscaled images are re-encoded in their own format.
func Process(r io.Reader) (*ProcessResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading image data: %w", model.ErrIO, err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: image larger than %d bytes", model.ErrValidation, MaxUploadSize)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if _, ok := AllowedMIME[detected]; !ok {
		return nil, fmt.Errorf("%w: unsupported image format: %s (only JPEG and PNG accepted)", model.ErrValidation, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %w", model.ErrValidation, err)
	}

	scaled := downscale(img, MaxDimension)
	if scaled == img {
		return &ProcessResult{Data: data, MIME: detected}, nil
	}

	var buf bytes.Buffer
	switch detected {
	case "image/png":
		err = png.Encode(&buf, scaled)
	default:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", detected, err)
	}

	return &ProcessResult{Data: buf.Bytes(), MIME: detected}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Store keeps uploaded item images in a directory. Stored paths are resolved
// by file name, so records written under one spelling of Dir stay valid
// under another.
type Store struct {
	Dir string

	// mu orders uploads against sweeps: an upload holds it shared until its
	// item row is committed, a sweep holds it exclusively.
	mu sync.RWMutex
}

// NewStore returns a Store rooted at dir, creating the directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating upload dir: %w", model.ErrIO, err)
	}
	return &Store{Dir: dir}, nil
}

// BeginUpload blocks sweeps until the returned func is called. Callers hold
// it from Save until the path is recorded (or removed again).
func (s *Store) BeginUpload() func() {
	s.mu.RLock()
	return s.mu.RUnlock
}

// Save processes an uploaded image and writes it under a random name that
// keeps the original file extension. It returns the stored path.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	res, err := Process(r)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = AllowedMIME[res.MIME]
	}
	path := filepath.Join(s.Dir, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)

	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return "", fmt.Errorf("%w: writing image: %w", model.ErrIO, err)
	}
	return path, nil
}

// Open opens a stored image for reading and reports its MIME type.
func (s *Store) Open(path string) (*os.File, string, error) {
	local, ok := s.resolve(path)
	if !ok {
		return nil, "", fmt.Errorf("image %q: %w", path, model.ErrNotFound)
	}
	f, err := os.Open(local)
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("image %q: %w", path, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: opening image: %w", model.ErrIO, err)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("%w: rewinding image: %w", model.ErrIO, err)
	}
	return f, http.DetectContentType(head[:n]), nil
}

// Remove deletes a stored image. Missing files are not an error.
func (s *Store) Remove(path string) error {
	local, ok := s.resolve(path)
	if !ok {
		return nil
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing image: %w", model.ErrIO, err)
	}
	return nil
}

// Sweep removes files in the upload directory that no stored path refers to.
// referenced is called once no upload is in flight; its keys are stored
// paths and are matched by file name. It returns the number of files removed.
func (s *Store) Sweep(referenced func() (map[string]bool, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := referenced()
	if err != nil {
		return 0, err
	}
	keep := make(map[string]bool, len(refs))
	for p := range refs {
		keep[filepath.Base(p)] = true
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("%w: reading upload dir: %w", model.ErrIO, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove orphaned image", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// resolve maps a stored path onto the file of the same name in Dir.
func (s *Store) resolve(path string) (string, bool) {
	name := filepath.Base(path)
	if path == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", false
	}
	return filepath.Join(s.Dir, name), true
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
