// Package imageio converts between encoded image files and the raw RGB
// buffers the remapping engine works on.
package imageio

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// Output formats accepted by Encode.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// DefaultJPEGQuality is used when Encode is given a quality outside 1..100.
const DefaultJPEGQuality = 90

// Decode reads a PNG, JPEG, GIF or WebP image and returns its pixels as RGB
// together with the detected format name. Alpha is dropped. Images whose
// header declares more than types.MaxPixels are rejected before any pixel
// buffer is allocated.
func Decode(r io.Reader) (*types.Image, string, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	if err := types.CheckSize(cfg.Width, cfg.Height); err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return FromImage(img), format, nil
}

// DecodeFile opens and decodes path.
func DecodeFile(path string) (*types.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	img, format, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// FromImage copies any image.Image into an RGB buffer.
func FromImage(img image.Image) *types.Image {
	b := img.Bounds()
	out := types.NewImage(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		// Premultiplied; translucent pixels come out composited over black.
		for y := 0; y < out.Height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				out.Set(x, y, [3]byte{row[4*x], row[4*x+1], row[4*x+2]})
			}
		}
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				out.Set(x, y, [3]byte{row[4*x], row[4*x+1], row[4*x+2]})
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.Set(x, y, [3]byte{c.R, c.G, c.B})
			}
		}
	}
	return out
}

// ToNRGBA wraps the RGB buffer as an opaque image.NRGBA.
func ToNRGBA(img *types.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, j := 0, 0; i < len(img.Pix); i, j = i+types.BytesPerPixel, j+4 {
		out.Pix[j] = img.Pix[i]
		out.Pix[j+1] = img.Pix[i+1]
		out.Pix[j+2] = img.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// NormalizeFormat maps format names and file extensions ("jpg", ".PNG") to
// FormatPNG or FormatJPEG.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported output format '%s' (want png or jpeg)", format)
}

// ContentType returns the MIME type of a normalized format.
func ContentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Encode writes img as PNG or JPEG. quality only applies to JPEG.
func Encode(w io.Writer, img *types.Image, format string, quality int) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	nrgba := ToNRGBA(img)
	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, nrgba)
	default:
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, nrgba, &jpeg.Options{Quality: quality})
	}
}

// EncodeFile writes img to path, choosing the format from the extension.
func EncodeFile(path string, img *types.Image, quality int) error {
	format, err := NormalizeFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, img, format, quality); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Resize scales img to width×height with approximate bilinear filtering.
// The target must be positive and at most types.MaxPixels.
func Resize(img *types.Image, width, height int) (*types.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}
	if err := types.CheckSize(width, height); err != nil {
		return nil, fmt.Errorf("resizing: %w", err)
	}
	if img.Width == width && img.Height == height {
		return img, nil
	}
	src := ToNRGBA(img)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return FromImage(dst), nil
}

// OutputName builds the default output file name for an input image and
// function: "<stem>_<function>_<YYYYmmddHHMMSS>.jpeg". In the function "/"
// becomes "div" and whitespace is removed.
func OutputName(inputPath, function string, t time.Time) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	fn := strings.ReplaceAll(function, "/", "div")
	fn = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, fn)

	return fmt.Sprintf("%s_%s_%s.jpeg", stem, fn, t.Format("20060102150405"))
}
