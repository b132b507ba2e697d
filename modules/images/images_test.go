package images

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder stands in for the WebAssembly encoders.
type fakeEncoder struct {
	ext   string
	calls atomic.Int32
}

func (f *fakeEncoder) Ext() string { return f.ext }

func (f *fakeEncoder) Encode(src *Source) ([]byte, error) {
	f.calls.Add(1)
	if _, err := src.Image(); err != nil {
		return nil, err
	}
	return []byte(f.ext + ":" + src.Path), nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	require.NoError(t, enc.Encode(&buf, testImage()))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, &gif.GIF{Image: []*image.Paletted{pal, pal}, Delay: []int{10, 10}}))
	return buf.Bytes()
}

type fixture struct {
	env  *task.Env
	avif *fakeEncoder
	webp *fakeEncoder
	mod  *Module
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env, _ := testutil.NewEnv(t)
	f := &fixture{env: env, avif: &fakeEncoder{ext: ".avif"}, webp: &fakeEncoder{ext: ".webp"}}
	f.mod = &Module{Variants: func(in *Input) []Encoder {
		return []Encoder{f.avif, f.webp, Optimized{JPEGQuality: in.JPEGQuality}}
	}}

	src := env.App("images", "src")
	files := map[string][]byte{
		"photo.png":         encodePNG(t),
		"nested/cat.jpg":    encodeJPEG(t),
		"nested/anim.gif":   encodeGIF(t),
		"logo.svg":          []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="1" height="1"/></svg>`),
		"nested/icon.svg":   []byte(`<svg xmlns="http://www.w3.org/2000/svg">  <!-- x -->  <rect width="1" height="1"/></svg>`),
		"nested/readme.txt": []byte("keep me"),
	}
	for name, data := range files {
		p := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
		testutil.Touch(t, p, -time.Hour)
	}
	return f
}

func (f *fixture) dist(rel string) string {
	return f.env.App("images", "dist", filepath.FromSlash(rel))
}

func TestImages_ProducesVariants(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	f := newFixture(t)

	// --- Act ---
	err := f.mod.run(testutil.Context(t), f.env, newInput().(*Input))

	// --- Assert ---
	require.NoError(t, err)
	for _, rel := range []string{
		"photo.avif", "photo.webp", "photo.png",
		"nested/cat.avif", "nested/cat.webp", "nested/cat.jpg",
		"nested/anim.avif", "nested/anim.webp", "nested/anim.gif",
		"nested/icon.svg", "nested/readme.txt",
	} {
		assert.FileExists(t, f.dist(rel))
	}
	assert.NoFileExists(t, f.dist("logo.svg"), "top-level svg sources are excluded")
	assert.NoFileExists(t, f.dist("nested/icon.avif"), "svg sources only get the optimized copy")
	assert.NotContains(t, testutil.ReadFile(t, f.dist("nested/icon.svg")), "<!--")
	assert.Equal(t, "keep me", testutil.ReadFile(t, f.dist("nested/readme.txt")))
	assert.Equal(t, ".avif:photo.png", testutil.ReadFile(t, f.dist("photo.avif")))
}

func TestImages_SecondRunTouchesNothing(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	f := newFixture(t)
	input := newInput().(*Input)
	_, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))
	require.NoError(t, err)
	before, err := os.Stat(f.dist("photo.webp"))
	require.NoError(t, err)
	avifCalls := f.avif.calls.Load()

	// --- Act ---
	stats, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))

	// --- Assert ---
	require.NoError(t, err)
	assert.Zero(t, stats.Written)
	assert.Equal(t, 11, stats.Skipped)
	assert.Equal(t, avifCalls, f.avif.calls.Load())
	after, err := os.Stat(f.dist("photo.webp"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestImages_NewerSourceIsRebuilt(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	f := newFixture(t)
	input := newInput().(*Input)
	_, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))
	require.NoError(t, err)
	testutil.Touch(t, f.env.App("images", "src", "photo.png"), time.Hour)

	// --- Act ---
	stats, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Written)
}

func TestImages_OutputCollisionsAreReported(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	f := newFixture(t)
	testutil.WriteTree(t, f.env.App("images", "src"), map[string]string{
		"nested/cat.png": string(encodePNG(t)),
		"shot.png":       string(encodePNG(t)),
		"shot.webp":      "not decoded",
	})
	input := newInput().(*Input)

	// --- Act ---
	stats, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output nested/cat.avif is produced by both nested/cat.jpg and nested/cat.png")
	assert.Contains(t, err.Error(), "is produced by both shot.png and shot.webp")
	assert.Equal(t, 4, stats.Failed)
	assert.NoFileExists(t, f.dist("nested/cat.avif"))
	assert.NoFileExists(t, f.dist("shot.avif"))
	assert.FileExists(t, f.dist("photo.avif"), "unrelated sources are still processed")
}

func TestImages_FailureDoesNotStopBatch(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	f := newFixture(t)
	testutil.WriteTree(t, f.env.App("images", "src"), map[string]string{"broken.png": "not a png"})
	input := newInput().(*Input)
	input.Workers = 3

	// --- Act ---
	stats, err := Process(testutil.Context(t), f.env, input, f.mod.Variants(input))

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.png")
	assert.Contains(t, err.Error(), "1 of 6 images failed")
	assert.Equal(t, 1, stats.Failed)
	assert.FileExists(t, f.dist("photo.avif"))
	assert.FileExists(t, f.dist("nested/cat.jpg"))
}

func TestOptimized_PassthroughWhenNotSmaller(t *testing.T) {
	t.Parallel()
	data := encodePNG(t)

	out, err := Optimized{JPEGQuality: 75}.Encode(&Source{Path: "a.png", Ext: ".png", Data: data})

	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestOptimized_RecompressesJPEG(t *testing.T) {
	t.Parallel()
	data := encodeJPEG(t)

	out, err := Optimized{JPEGQuality: 75}.Encode(&Source{Path: "a.jpg", Ext: ".jpg", Data: data})

	require.NoError(t, err)
	assert.Less(t, len(out), len(data))
}

func TestInputNormalize(t *testing.T) {
	t.Parallel()
	in := newInput().(*Input)
	require.NoError(t, in.Normalize())
	in.Workers = 0
	assert.ErrorContains(t, in.Normalize(), "workers")
}
