package imageio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemonberrylabs/holomorph/pkg/types"
)

func checker(w, h int) *types.Image {
	img := types.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, [3]byte{250, 20, 90})
			} else {
				img.Set(x, y, [3]byte{5, 200, 30})
			}
		}
	}
	return img
}

func TestPNGRoundTrip(t *testing.T) {
	src := checker(7, 5)
	var buf bytes.Buffer
	if err := Encode(&buf, src, "png", 0); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if got.Width != 7 || got.Height != 5 || !bytes.Equal(got.Pix, src.Pix) {
		t.Error("PNG round trip changed the pixels")
	}
}

func TestJPEGEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker(16, 16), "jpg", 95); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "jpeg" || got.Width != 16 || got.Height != 16 {
		t.Errorf("decoded %s %dx%d", format, got.Width, got.Height)
	}
}

func TestDecodeGIF(t *testing.T) {
	pal := color.Palette{color.RGBA{0, 0, 0, 255}, color.RGBA{10, 20, 30, 255}}
	src := image.NewPaletted(image.Rect(0, 0, 3, 2), pal)
	src.SetColorIndex(2, 1, 1)

	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}
	got, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "gif" {
		t.Errorf("format = %q, want gif", format)
	}
	if c := got.At(2, 1); c != [3]byte{10, 20, 30} {
		t.Errorf("pixel (2,1) = %v", c)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error")
	}
}

func TestFromImageSubImage(t *testing.T) {
	full := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	full.Set(2, 3, color.NRGBA{1, 2, 3, 255})
	sub := full.SubImage(image.Rect(1, 1, 4, 4))

	got := FromImage(sub)
	if got.Width != 3 || got.Height != 3 {
		t.Fatalf("size = %dx%d, want 3x3", got.Width, got.Height)
	}
	if c := got.At(1, 2); c != [3]byte{1, 2, 3} {
		t.Errorf("pixel (1,2) = %v, want [1 2 3]", c)
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{".PNG", FormatPNG, false},
		{"jpg", FormatJPEG, false},
		{"JPEG", FormatJPEG, false},
		{"webp", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("NormalizeFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestResize(t *testing.T) {
	src := checker(10, 8)
	if got, err := Resize(src, 10, 8); err != nil || got != src {
		t.Errorf("same-size Resize = %p, %v; want the input", got, err)
	}
	got, err := Resize(src, 5, 3)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if got.Width != 5 || got.Height != 3 || len(got.Pix) != 5*3*3 {
		t.Errorf("Resize = %dx%d (%d bytes)", got.Width, got.Height, len(got.Pix))
	}
}

func TestResizeRejectsBadTarget(t *testing.T) {
	src := checker(2, 2)
	if _, err := Resize(src, 40000, 40000); !errors.Is(err, types.ErrTooLarge) {
		t.Errorf("Resize(40000x40000) error = %v, want ErrTooLarge", err)
	}
	if _, err := Resize(src, 0, 3); err == nil {
		t.Error("Resize(0x3) should fail")
	}
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG and fixes the
// chunk checksum, leaving the pixel data as it was.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	// 8-byte signature, 4-byte length, "IHDR", then width and height.
	if string(data[12:16]) != "IHDR" {
		t.Fatalf("unexpected first chunk %q", data[12:16])
	}
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeRejectsHugeHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, checker(2, 2), "png", 0); err != nil {
		t.Fatal(err)
	}

	_, _, err := Decode(bytes.NewReader(withPNGSize(t, buf.Bytes(), 40000, 40000)))
	if !errors.Is(err, types.ErrTooLarge) {
		t.Fatalf("Decode error = %v, want ErrTooLarge", err)
	}

	// The header check must not consume bytes the decoder needs.
	got, _, err := Decode(bytes.NewReader(withPNGSize(t, buf.Bytes(), 2, 2)))
	if err != nil {
		t.Fatalf("Decode after header check: %v", err)
	}
	if !bytes.Equal(got.Pix, checker(2, 2).Pix) {
		t.Error("pixels changed after header check")
	}
}

func TestEncodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := EncodeFile(path, checker(3, 3), 0); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}
	got, _, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if !bytes.Equal(got.Pix, checker(3, 3).Pix) {
		t.Error("file round trip changed the pixels")
	}
	if err := EncodeFile(filepath.Join(dir, "out.bmp"), checker(1, 1), 0); err == nil {
		t.Error("expected error for .bmp")
	}
	if _, err := os.Stat(filepath.Join(dir, "out.bmp")); !os.IsNotExist(err) {
		t.Error("unsupported format still created a file")
	}
}

func TestOutputName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tests := []struct {
		input, function, want string
	}{
		{"images/input/cat.png", "z^2", "cat_z^2_20240309140507.jpeg"},
		{"/tmp/photo.final.jpg", "1 / z", "photo.final_1divz_20240309140507.jpeg"},
		{"dog", "sin(z) + z", "dog_sin(z)+z_20240309140507.jpeg"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.input, tt.function, ts); got != tt.want {
			t.Errorf("OutputName(%q, %q) = %q, want %q", tt.input, tt.function, got, tt.want)
		}
	}
}
