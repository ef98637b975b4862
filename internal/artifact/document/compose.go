package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
)

var (
	// ErrMissingIdentifier is returned when the item has no id.
	ErrMissingIdentifier = errors.New("item id is required")
	// ErrEmptySymbol is returned when the symbol snapshot holds no pixels.
	ErrEmptySymbol = errors.New("symbol snapshot is empty")
	// ErrEmptyBrand is returned when the brand image was never loaded.
	ErrEmptyBrand = errors.New("brand image is empty")
)

var (
	black = Color{}
	white = Color{R: 255, G: 255, B: 255}
)

// Compositor lays items out on the label template.
type Compositor struct {
	branding Branding
	currency string
	prefix   string
	now      func() time.Time
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithBranding overrides the banner title and section heading.
func WithBranding(b Branding) Option {
	return func(c *Compositor) {
		c.branding = b.withDefaults()
	}
}

// WithCurrency sets the ISO 4217 currency prices are shown in.
func WithCurrency(code string) Option {
	return func(c *Compositor) {
		if code != "" {
			c.currency = code
		}
	}
}

// WithClock overrides the clock stamping composed documents.
func WithClock(now func() time.Time) Option {
	return func(c *Compositor) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCompositor builds a Compositor. It fails when the configured currency is
// not a known ISO 4217 code.
func NewCompositor(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		branding: Branding{}.withDefaults(),
		currency: DefaultCurrency,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	prefix, err := currencyPrefix(c.currency)
	if err != nil {
		return nil, err
	}
	c.prefix = prefix
	return c, nil
}

// Compose renders one label. Either every region is painted and a Document
// is returned, or an error is returned and nothing is produced.
func (c *Compositor) Compose(item artifact.Item, sym symbol.Snapshot, brand asset.Image) (*Document, error) {
	if !item.HasID() {
		return nil, ErrMissingIdentifier
	}
	if sym.Empty() {
		return nil, ErrEmptySymbol
	}
	if brand.Empty() {
		return nil, ErrEmptyBrand
	}
	symbolPNG, err := sym.PNG()
	if err != nil {
		return nil, err
	}

	ops := []Op{
		fillOp(bannerRect, Accent),
		imageOp(brandRect, ImageData{
			Name:  "brand",
			Type:  brand.Type,
			Label: brand.Ref,
			Data:  append([]byte(nil), brand.Data...),
		}),
		textOp(titleOrigin[0], titleOrigin[1], Font{Style: "B", Size: 20}, white, c.branding.Title),
		textOp(headingOrigin[0], headingOrigin[1], Font{Size: 16}, black, c.branding.Heading),
	}
	fields := [4]string{
		"Item ID: " + item.ID,
		"Name: " + item.Name,
		"Price: " + c.prefix + item.Price,
		"Description: " + item.Description,
	}
	for i, line := range fields {
		ops = append(ops, textOp(fieldX, fieldRows[i], Font{Size: 12}, black, line))
	}
	ops = append(ops, imageOp(symbolRect, ImageData{
		Name:  "symbol",
		Type:  "PNG",
		Label: sym.Payload,
		Data:  symbolPNG,
	}))

	composedAt := c.now().UTC().Truncate(time.Second)
	data, err := renderPDF(ops, composedAt)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return newDocument(item, ops, data, composedAt), nil
}
