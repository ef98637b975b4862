// Package asset resolves static images referenced by the artifact template.
//
// Loads never block the caller: Load hands back a Future whose Done channel
// is closed once the image is available or the load has failed.
package asset

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/louisbranch/inventag/internal/platform/timeouts"
)

// BrandRef references the brand mark bundled with the binary.
const BrandRef = "builtin:brand.png"

const builtinPrefix = "builtin:"

// maxAssetBytes bounds how much of a remote or local asset is read.
const maxAssetBytes = 8 << 20

var (
	// ErrPending is returned by Future.Result before the load settles.
	ErrPending = errors.New("asset load pending")
	// ErrEmptyRef is returned when no asset reference is configured.
	ErrEmptyRef = errors.New("asset reference is required")
	// ErrUnsupportedImage is returned when the bytes are not a PNG or JPEG.
	ErrUnsupportedImage = errors.New("asset is not a supported image")
)

//go:embed builtin/*.png
var builtinFS embed.FS

// Image is a decoded-and-validated static image.
type Image struct {
	Ref    string
	Type   string
	Data   []byte
	Width  int
	Height int
}

// Empty reports whether img carries no image bytes.
func (img Image) Empty() bool {
	return len(img.Data) == 0
}

// Loader requests images asynchronously.
type Loader interface {
	Load(ctx context.Context, ref string) *Future
}

// Library loads images from the bundled set, the local filesystem, or over
// HTTP, caching successful loads by reference.
type Library struct {
	builtin fs.FS
	client  *http.Client

	mu    sync.Mutex
	cache map[string]Image
}

// Option configures a Library.
type Option func(*Library)

// WithHTTPClient overrides the client used for http(s) references.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Library) {
		if client != nil {
			l.client = client
		}
	}
}

// WithBuiltin overrides the filesystem serving builtin: references. Names are
// resolved under builtin/.
func WithBuiltin(fsys fs.FS) Option {
	return func(l *Library) {
		if fsys != nil {
			l.builtin = fsys
		}
	}
}

// NewLibrary builds a Library.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		builtin: builtinFS,
		client:  &http.Client{Timeout: timeouts.AssetLoad},
		cache:   make(map[string]Image),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load starts resolving ref and returns immediately.
func (l *Library) Load(ctx context.Context, ref string) *Future {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Failed(ErrEmptyRef)
	}
	if img, ok := l.cached(ref); ok {
		return Resolved(img)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	future, settle := NewPromise()
	go func() {
		img, err := l.fetch(ctx, ref)
		if err != nil {
			settle(Image{}, fmt.Errorf("load asset %q: %w", ref, err))
			return
		}
		l.store(img)
		settle(img, nil)
	}()
	return future
}

func (l *Library) cached(ref string) (Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.cache[ref]
	return img, ok
}

func (l *Library) store(img Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[img.Ref] = img
}

func (l *Library) fetch(ctx context.Context, ref string) (Image, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(ref, builtinPrefix):
		data, err = fs.ReadFile(l.builtin, "builtin/"+strings.TrimPrefix(ref, builtinPrefix))
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = l.download(ctx, ref)
	default:
		data, err = readFile(ref)
	}
	if err != nil {
		return Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	return Decode(ref, data)
}

func (l *Library) download(ctx context.Context, ref string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.AssetLoad)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxAssetBytes))
}

// Decode validates data as a PNG or JPEG image and records its format and
// dimensions.
func Decode(ref string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrUnsupportedImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return Image{
		Ref:    ref,
		Type:   imageType,
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
