// Package document composes the printable item label.
//
// Composition produces a display list of paint operations in a fixed
// back-to-front order. The list owns copies of every image it references, so
// a composed Document never changes after Compose returns. The same list is
// serialized to PDF and rendered as a terminal preview.
package document

// A4 portrait page size in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
)

const fontFamily = "Helvetica"

// Default template text.
const (
	DefaultTitle   = "BARCODE SYSTEM"
	DefaultHeading = "InvenTag - Item Details"
)

// Accent is the banner fill color.
var Accent = Color{R: 30, G: 144, B: 255}

// Color is an RGB fill or text color.
type Color struct {
	R, G, B uint8
}

// Rect is a template region in millimetres.
type Rect struct {
	X, Y, W, H float64
}

// Fixed template regions.
var (
	bannerRect = Rect{X: 0, Y: 0, W: PageWidth, H: 30}
	brandRect  = Rect{X: 10, Y: 5, W: 20, H: 20}
	symbolRect = Rect{X: 20, Y: 100, W: 100, H: 30}
)

var (
	titleOrigin   = [2]float64{35, 20}
	headingOrigin = [2]float64{20, 40}
	fieldX        = 20.0
	fieldRows     = [4]float64{60, 70, 80, 90}
)

// Branding is the text shown in the banner and section heading.
type Branding struct {
	Title   string
	Heading string
}

func (b Branding) withDefaults() Branding {
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if b.Heading == "" {
		b.Heading = DefaultHeading
	}
	return b
}
