package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CangTianYi/CS3331/internal/model"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestProcessJPEG(t *testing.T) {
	data := createTestJPEG(100, 100)
	result, err := Process(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Process JPEG: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if !bytes.Equal(result.Data, data) {
		t.Error("small image should be stored unchanged")
	}
}

func TestProcessPNGKeepsFormat(t *testing.T) {
	data := createTestPNG(1500, 300)
	result, err := Process(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if result.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", result.MIME)
	}

	img, format, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png output, got %s", format)
	}
	if img.Bounds().Dx() != MaxDimension || img.Bounds().Dy() != 204 {
		t.Errorf("expected %dx204, got %dx%d", MaxDimension, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcessDownscale(t *testing.T) {
	// Create a 2048x2048 image.
	data := createTestJPEG(2048, 2048)
	result, err := Process(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	// Decode the result and check dimensions.
	img, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		t.Errorf("expected max %dx%d, got %dx%d", MaxDimension, MaxDimension, bounds.Dx(), bounds.Dy())
	}
}

func TestProcessInvalidFormat(t *testing.T) {
	_, err := Process(bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for invalid format, got %v", err)
	}
}

func TestProcessGIFRejected(t *testing.T) {
	// GIF magic bytes.
	_, err := Process(bytes.NewReader([]byte("GIF89a...")))
	if err == nil {
		t.Error("expected error for GIF")
	}
}

func TestStoreSaveKeepsExtension(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	path, err := s.Save(bytes.NewReader(createTestPNG(20, 20)), "My Photo.PNG")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != s.Dir {
		t.Errorf("expected file inside %s, got %s", s.Dir, path)
	}
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".png") || len(base) != 32+len(".png") {
		t.Errorf("expected <32 hex>.png name, got %s", base)
	}

	other, _ := s.Save(bytes.NewReader(createTestPNG(20, 20)), "My Photo.PNG")
	if other == path {
		t.Error("expected distinct names for separate uploads")
	}

	noExt, err := s.Save(bytes.NewReader(createTestJPEG(20, 20)), "upload")
	if err != nil {
		t.Fatalf("Save without extension: %v", err)
	}
	if filepath.Ext(noExt) != ".jpg" {
		t.Errorf("expected .jpg fallback extension, got %s", noExt)
	}

	f, mime, err := s.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if mime != "image/png" {
		t.Errorf("expected image/png, got %s", mime)
	}
	data, _ := io.ReadAll(f)
	if len(data) == 0 {
		t.Error("expected file content from start")
	}
}

func TestStoreRemoveAndSweep(t *testing.T) {
	s, _ := NewStore(t.TempDir())

	keep, _ := s.Save(bytes.NewReader(createTestPNG(10, 10)), "a.png")
	drop, _ := s.Save(bytes.NewReader(createTestPNG(10, 10)), "b.png")
	gone, _ := s.Save(bytes.NewReader(createTestPNG(10, 10)), "c.png")

	if err := s.Remove(gone); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(gone); err != nil {
		t.Errorf("removing a missing file should not fail: %v", err)
	}
	if err := s.Remove("/etc/passwd"); err != nil {
		t.Errorf("paths outside the store are ignored: %v", err)
	}

	n, err := s.Sweep(refs(keep))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 orphan removed, got %d", n)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("referenced file removed: %v", err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Error("orphaned file still present")
	}

	if _, _, err := s.Open(drop); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound opening a removed image, got %v", err)
	}
}

func refs(paths ...string) func() (map[string]bool, error) {
	return func() (map[string]bool, error) {
		m := map[string]bool{}
		for _, p := range paths {
			m[p] = true
		}
		return m, nil
	}
}

func TestSweepMatchesByFileName(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	saved, err := NewStore("uploads")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	path, err := saved.Save(bytes.NewReader(createTestPNG(10, 10)), "bike.png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Same directory, spelled as an absolute path.
	reopened, err := NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	n, err := reopened.Sweep(refs(path))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing swept, got %d", n)
	}

	f, _, err := reopened.Open(path)
	if err != nil {
		t.Fatalf("referenced image should still open: %v", err)
	}
	f.Close()
}

func TestSweepWaitsForUpload(t *testing.T) {
	s, _ := NewStore(t.TempDir())

	done := s.BeginUpload()
	path, err := s.Save(bytes.NewReader(createTestPNG(10, 10)), "a.png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	swept := make(chan int)
	go func() {
		// The upload's row is committed before the sweep loads references.
		n, _ := s.Sweep(refs(path))
		swept <- n
	}()

	select {
	case <-swept:
		t.Fatal("sweep ran while an upload was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	done()
	if n := <-swept; n != 0 {
		t.Errorf("expected the committed upload to survive, got %d removed", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("uploaded file removed: %v", err)
	}
}
