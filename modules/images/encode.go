package images

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"github.com/specialistvlad/assetgrid/internal/minify"
)

// Source is one input file. Decoding is lazy and happens at most once.
type Source struct {
	Path string
	Ext  string
	Data []byte

	img    image.Image
	imgErr error
	loaded bool
}

// Image decodes the source.
func (s *Source) Image() (image.Image, error) {
	if !s.loaded {
		s.loaded = true
		s.img, s.imgErr = decode(s.Ext, s.Data)
		if s.imgErr != nil {
			s.imgErr = fmt.Errorf("failed to decode %s: %w", s.Path, s.imgErr)
		}
	}
	return s.img, s.imgErr
}

func decode(ext string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch ext {
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".png":
		return png.Decode(r)
	case ".gif":
		return gif.Decode(r)
	case ".webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}
}

// Encoder produces one derived output from a source.
type Encoder interface {
	// Ext is the output extension, or "" to keep the source's.
	Ext() string
	Encode(src *Source) ([]byte, error)
}

// AVIF encodes with libavif compiled to WebAssembly.
type AVIF struct {
	Quality int
}

// Ext implements Encoder.
func (AVIF) Ext() string { return ".avif" }

// Encode implements Encoder.
func (e AVIF) Encode(src *Source) ([]byte, error) {
	img, err := src.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := avif.Encode(&buf, img, avif.Options{Quality: e.Quality, QualityAlpha: e.Quality, Speed: avif.DefaultSpeed}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WebP encodes with libwebp compiled to WebAssembly.
type WebP struct {
	Quality int
}

// Ext implements Encoder.
func (WebP) Ext() string { return ".webp" }

// Encode implements Encoder.
func (e WebP) Encode(src *Source) ([]byte, error) {
	img, err := src.Image()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: e.Quality, Method: webp.DefaultMethod}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Optimized re-encodes a file in its own format and falls back to the
// original bytes whenever that is not smaller.
type Optimized struct {
	JPEGQuality int
}

// Ext implements Encoder.
func (Optimized) Ext() string { return "" }

// Encode implements Encoder.
func (e Optimized) Encode(src *Source) ([]byte, error) {
	var out []byte
	switch src.Ext {
	case ".jpg", ".jpeg":
		img, err := src.Image()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.JPEGQuality}); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	case ".png":
		img, err := src.Image()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	case ".gif":
		// Every frame is kept.
		anim, err := gif.DecodeAll(bytes.NewReader(src.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", src.Path, err)
		}
		var buf bytes.Buffer
		if err := gif.EncodeAll(&buf, anim); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	case ".svg":
		minified, err := minify.SVG(src.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to minify %s: %w", src.Path, err)
		}
		out = minified
	default:
		return src.Data, nil
	}

	if len(out) >= len(src.Data) {
		return src.Data, nil
	}
	return out, nil
}

// rasterExts are the formats that get every variant.
var rasterExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// outputName is rel with its extension replaced by the encoder's.
func outputName(rel string, enc Encoder) string {
	if enc.Ext() == "" {
		return rel
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + enc.Ext()
}

func lowerExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
