// Package symbol paints lookup URLs as Code 128 linear symbols onto a
// reusable raster surface.
package symbol

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/boombuler/barcode/code128"
)

// Display footprint every painted raster is pinned to, independent of the
// native symbol size.
const (
	DisplayWidth  = 180
	DisplayHeight = 40
)

// Default geometry of a painted symbol, in raster pixels.
const (
	DefaultModuleWidth = 2
	DefaultHeight      = 60
)

// ErrUnencodable reports a payload Code 128 cannot represent.
var ErrUnencodable = errors.New("payload cannot be encoded as code 128")

// Raster is the mutable surface a symbol is painted on. Re-encoding
// overwrites the pixels in place.
type Raster struct {
	payload       string
	pix           *image.Gray
	displayWidth  int
	displayHeight int
}

// NewRaster returns an empty surface.
func NewRaster() *Raster {
	return &Raster{}
}

// Payload returns the string the raster currently encodes, or "" before the
// first successful encode.
func (r *Raster) Payload() string {
	if r == nil {
		return ""
	}
	return r.payload
}

// Encoded reports whether the raster currently holds a symbol.
func (r *Raster) Encoded() bool {
	return r != nil && r.pix != nil && r.payload != ""
}

// Snapshot copies the raster's current pixels. The copy is unaffected by any
// later encode on r.
func (r *Raster) Snapshot() Snapshot {
	if !r.Encoded() {
		return Snapshot{}
	}
	clone := image.NewGray(r.pix.Rect)
	copy(clone.Pix, r.pix.Pix)
	return Snapshot{
		Payload:       r.payload,
		Image:         clone,
		DisplayWidth:  r.displayWidth,
		DisplayHeight: r.displayHeight,
	}
}

// Snapshot is an immutable copy of a painted raster.
type Snapshot struct {
	Payload       string
	Image         *image.Gray
	DisplayWidth  int
	DisplayHeight int
}

// Empty reports whether the snapshot holds no symbol.
func (s Snapshot) Empty() bool {
	return s.Image == nil || s.Payload == ""
}

// PNG re-exports the snapshot pixels as a PNG image.
func (s Snapshot) PNG() ([]byte, error) {
	if s.Empty() {
		return nil, errors.New("symbol snapshot is empty")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image); err != nil {
		return nil, fmt.Errorf("encode symbol png: %w", err)
	}
	return buf.Bytes(), nil
}

// Encoder paints Code 128 symbols with a fixed module width and bar height
// and no human-readable caption.
type Encoder struct {
	ModuleWidth int
	Height      int
}

// NewEncoder returns an Encoder with the default geometry.
func NewEncoder() *Encoder {
	return &Encoder{ModuleWidth: DefaultModuleWidth, Height: DefaultHeight}
}

// Encode paints payload onto r. A nil raster or an empty payload is a no-op.
// When the payload cannot be encoded the raster is left untouched.
func (e *Encoder) Encode(r *Raster, payload string) error {
	if r == nil || payload == "" {
		return nil
	}
	code, err := code128.Encode(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnencodable, err)
	}

	moduleWidth, height := e.geometry()
	modules := code.Bounds().Dx()
	width := modules * moduleWidth
	rect := image.Rect(0, 0, width, height)
	if r.pix == nil || !r.pix.Rect.Eq(rect) {
		r.pix = image.NewGray(rect)
	}

	for module := 0; module < modules; module++ {
		shade := color.GrayModel.Convert(code.At(module, 0)).(color.Gray)
		for dx := 0; dx < moduleWidth; dx++ {
			x := module*moduleWidth + dx
			for y := 0; y < height; y++ {
				r.pix.SetGray(x, y, shade)
			}
		}
	}
	r.payload = payload
	r.displayWidth = DisplayWidth
	r.displayHeight = DisplayHeight
	return nil
}

func (e *Encoder) geometry() (moduleWidth, height int) {
	moduleWidth, height = DefaultModuleWidth, DefaultHeight
	if e != nil && e.ModuleWidth > 0 {
		moduleWidth = e.ModuleWidth
	}
	if e != nil && e.Height > 0 {
		height = e.Height
	}
	return moduleWidth, height
}
