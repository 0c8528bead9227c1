// Package raster provides loading, saving, and immutable manipulation of
// scanned page images.
//
// An Image is read once from storage and never mutated in place; cropping
// and grayscale conversion always produce new pixel buffers. PNG, JPEG,
// TIFF, and BMP files are supported.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ReadError reports an unreadable or corrupt input file. It degrades that
// file's record only; the surrounding batch continues.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read image %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Image wraps a decoded raster page. The underlying pixels are owned by the
// Image and must not be modified by callers; all operations return new
// images.
type Image struct {
	img  image.Image
	gray *image.Gray
}

// Load reads and decodes an image file. Failures are reported as *ReadError.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return FromImage(img), nil
}

// FromImage wraps a decoded image. The caller must not modify img afterwards.
func FromImage(img image.Image) *Image {
	return &Image{img: img}
}

// Width returns the image width in pixels.
func (p *Image) Width() int { return p.img.Bounds().Dx() }

// Height returns the image height in pixels.
func (p *Image) Height() int { return p.img.Bounds().Dy() }

// Source exposes the wrapped image for encoding. Treat it as read-only.
func (p *Image) Source() image.Image { return p.img }

// Gray returns the luminance plane of the image with bounds anchored at the
// origin. The plane is computed once and cached; callers must treat it as
// read-only.
func (p *Image) Gray() *image.Gray {
	if p.gray != nil {
		return p.gray
	}
	b := p.img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := p.img.(*image.Gray); ok {
		draw.Draw(g, g.Bounds(), src, b.Min, draw.Src)
	} else {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g.SetGray(x, y, color.GrayModel.Convert(p.img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
			}
		}
	}
	p.gray = g
	return g
}

// GrayAt returns the luminance value at (x, y) in origin-anchored
// coordinates.
func (p *Image) GrayAt(x, y int) uint8 {
	return p.Gray().GrayAt(x, y).Y
}

// Crop returns a new image holding a copy of the source pixels within the
// half-open box [x0,x1) x [y0,y1). Coordinates are clamped to the image
// bounds; a degenerate box after clamping yields a 1x1 image at the nearest
// valid position.
func (p *Image) Crop(x0, y0, x1, y1 int) *Image {
	w, h := p.Width(), p.Height()
	x0 = clamp(x0, 0, w-1)
	y0 = clamp(y0, 0, h-1)
	x1 = clamp(x1, x0+1, w)
	y1 = clamp(y1, y0+1, h)

	b := p.img.Bounds()
	srcRect := image.Rect(b.Min.X+x0, b.Min.Y+y0, b.Min.X+x1, b.Min.Y+y1)

	switch p.img.(type) {
	case *image.Gray:
		dst := image.NewGray(image.Rect(0, 0, x1-x0, y1-y0))
		draw.Draw(dst, dst.Bounds(), p.img, srcRect.Min, draw.Src)
		return FromImage(dst)
	default:
		dst := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
		draw.Draw(dst, dst.Bounds(), p.img, srcRect.Min, draw.Src)
		return FromImage(dst)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Save encodes the image to path using the codec implied by the file
// extension. Parent directories must already exist.
func (p *Image) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	defer f.Close()

	switch FormatForPath(path) {
	case PNG:
		err = png.Encode(f, p.img)
	case JPEG:
		err = jpeg.Encode(f, p.img, &jpeg.Options{Quality: 95})
	case TIFF:
		err = tiff.Encode(f, p.img, nil)
	case BMP:
		err = bmp.Encode(f, p.img)
	default:
		err = fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return nil
}

// EncodePNG returns the image encoded as PNG bytes, suitable for handing
// to OCR engines.
func (p *Image) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Format identifies a supported raster file format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PNG indicates a Portable Network Graphics file.
	PNG
	// JPEG indicates a JPEG file.
	JPEG
	// TIFF indicates a Tagged Image File Format file.
	TIFF
	// BMP indicates a Windows bitmap file.
	BMP
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	case TIFF:
		return "TIFF"
	case BMP:
		return "BMP"
	default:
		return "Unknown"
	}
}

// FormatForPath detects the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".tif", ".tiff":
		return TIFF
	case ".bmp":
		return BMP
	default:
		return Unknown
	}
}
