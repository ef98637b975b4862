package document

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testCompositor(t *testing.T, opts ...Option) *Compositor {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	c, err := NewCompositor(opts...)
	if err != nil {
		t.Fatalf("new compositor: %v", err)
	}
	return c
}

func testSymbol(t *testing.T, payload string) symbol.Snapshot {
	t.Helper()
	raster := symbol.NewRaster()
	if err := symbol.NewEncoder().Encode(raster, payload); err != nil {
		t.Fatalf("encode symbol: %v", err)
	}
	return raster.Snapshot()
}

func testBrand(t *testing.T) asset.Image {
	t.Helper()
	f := asset.NewLibrary().Load(t.Context(), asset.BrandRef)
	img, err := f.Wait(t.Context())
	if err != nil {
		t.Fatalf("load brand: %v", err)
	}
	return img
}

func widget() artifact.Item {
	return artifact.Item{ID: "7", Name: "Widget", Price: "9.99", Description: "A small widget"}
}

func TestComposePaintsTemplateInOrder(t *testing.T) {
	t.Parallel()

	payload := "https://stock.example.com/api/itemdetails/7"
	doc, err := testCompositor(t).Compose(widget(), testSymbol(t, payload), testBrand(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	ops := doc.Ops()
	wantKinds := []OpKind{OpFill, OpImage, OpText, OpText, OpText, OpText, OpText, OpText, OpImage}
	if len(ops) != len(wantKinds) {
		t.Fatalf("ops = %d, want %d", len(ops), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if ops[i].Kind != kind {
			t.Fatalf("op %d kind = %v, want %v", i, ops[i].Kind, kind)
		}
	}

	if ops[0].Rect != (Rect{X: 0, Y: 0, W: PageWidth, H: 30}) || ops[0].Color != Accent {
		t.Fatalf("banner = %+v", ops[0])
	}
	if ops[1].Rect != (Rect{X: 10, Y: 5, W: 20, H: 20}) || ops[1].Image.Name != "brand" {
		t.Fatalf("brand = %+v", ops[1].Rect)
	}
	if ops[2].Text != DefaultTitle || ops[2].Font.Style != "B" || ops[2].Font.Size != 20 || ops[2].Color != white {
		t.Fatalf("title = %+v", ops[2])
	}
	if ops[3].Text != DefaultHeading || ops[3].Font.Size != 16 {
		t.Fatalf("heading = %+v", ops[3])
	}

	wantFields := []string{
		"Item ID: 7",
		"Name: Widget",
		"Price: INR 9.99",
		"Description: A small widget",
	}
	for i, want := range wantFields {
		op := ops[4+i]
		if op.Text != want {
			t.Fatalf("field %d = %q, want %q", i, op.Text, want)
		}
		if op.Rect.X != 20 || op.Rect.Y != float64(60+10*i) || op.Font.Size != 12 {
			t.Fatalf("field %d placed at %+v size %v", i, op.Rect, op.Font.Size)
		}
	}

	sym := ops[8]
	if sym.Rect != (Rect{X: 20, Y: 100, W: 100, H: 30}) || sym.Image.Label != payload {
		t.Fatalf("symbol = %+v label %q", sym.Rect, sym.Image.Label)
	}

	if !bytes.HasPrefix(doc.Bytes(), []byte("%PDF-")) {
		t.Fatal("document bytes are not a PDF")
	}
	if doc.Filename() != "item-7.pdf" {
		t.Fatalf("filename = %q, want %q", doc.Filename(), "item-7.pdf")
	}
}

func TestComposeIsAllOrNothing(t *testing.T) {
	t.Parallel()

	c := testCompositor(t)
	sym := testSymbol(t, "https://stock.example.com/api/itemdetails/7")
	brand := testBrand(t)

	tests := []struct {
		name  string
		item  artifact.Item
		sym   symbol.Snapshot
		brand asset.Image
		want  error
	}{
		{name: "missing id", item: artifact.Item{Name: "Widget"}, sym: sym, brand: brand, want: ErrMissingIdentifier},
		{name: "blank id", item: artifact.Item{ID: "   "}, sym: sym, brand: brand, want: ErrMissingIdentifier},
		{name: "empty symbol", item: widget(), brand: brand, want: ErrEmptySymbol},
		{name: "empty brand", item: widget(), sym: sym, want: ErrEmptyBrand},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := c.Compose(tc.item, tc.sym, tc.brand)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if doc != nil {
				t.Fatal("expected no document")
			}
		})
	}
}

func TestComposeRejectsUndecodableBrand(t *testing.T) {
	t.Parallel()

	brand := asset.Image{Ref: "broken", Type: "PNG", Data: []byte("not a png")}
	doc, err := testCompositor(t).Compose(widget(), testSymbol(t, "7"), brand)
	if err == nil || doc != nil {
		t.Fatalf("compose = %v, %v; want error and no document", doc, err)
	}
}

func TestComposeOwnsImageCopies(t *testing.T) {
	t.Parallel()

	brand := testBrand(t)
	brand.Data = append([]byte(nil), brand.Data...)
	doc, err := testCompositor(t).Compose(widget(), testSymbol(t, "7"), brand)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	before := doc.Bytes()
	for i := range brand.Data {
		brand.Data[i] = 0
	}
	if !bytes.Equal(doc.Ops()[1].Image.Data, testBrand(t).Data) {
		t.Fatal("display list shares brand bytes with the caller")
	}
	if !bytes.Equal(doc.Bytes(), before) {
		t.Fatal("document bytes changed")
	}

	ops := doc.Ops()
	ops[8].Image.Data[0] ^= 0xFF
	if bytes.Equal(ops[8].Image.Data, doc.Ops()[8].Image.Data) {
		t.Fatal("Ops returned shared image bytes")
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	t.Parallel()

	c := testCompositor(t)
	sym := testSymbol(t, "https://stock.example.com/api/itemdetails/7")
	brand := testBrand(t)
	first, err := c.Compose(widget(), sym, brand)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	second, err := c.Compose(widget(), sym, brand)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if first.Digest() != second.Digest() {
		t.Fatalf("digests differ: %s vs %s", first.Digest(), second.Digest())
	}
	if len(first.Digest()) != 64 {
		t.Fatalf("digest length = %d, want 64", len(first.Digest()))
	}
	if !first.ComposedAt().Equal(fixedTime) {
		t.Fatalf("composed at = %v, want %v", first.ComposedAt(), fixedTime)
	}
}

func TestComposeUsesBranding(t *testing.T) {
	t.Parallel()

	c := testCompositor(t, WithBranding(Branding{Title: "STOCKROOM"}), WithCurrency("USD"))
	doc, err := c.Compose(widget(), testSymbol(t, "7"), testBrand(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	preview := doc.Preview()
	for _, want := range []string{"STOCKROOM", DefaultHeading, "Price: $9.99", "[symbol 100x30mm] 7", "[banner #1E90FF 210x30mm]"} {
		if !strings.Contains(preview, want) {
			t.Fatalf("preview missing %q:\n%s", want, preview)
		}
	}
}

func TestComposeDoesNotWrapLongFields(t *testing.T) {
	t.Parallel()

	item := widget()
	item.Description = strings.Repeat("long ", 80)
	doc, err := testCompositor(t).Compose(item, testSymbol(t, "7"), testBrand(t))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	ops := doc.Ops()
	if got := ops[7].Text; got != "Description: "+item.Description {
		t.Fatalf("description line was altered: %q", got)
	}
	if len(ops) != 9 {
		t.Fatalf("ops = %d, want 9", len(ops))
	}
}

func TestCurrencyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want string
	}{
		{code: "INR", want: "INR "},
		{code: "USD", want: "$"},
		{code: "EUR", want: "€"},
		{code: "GBP", want: "£"},
	}
	for _, tc := range tests {
		got, err := currencyPrefix(tc.code)
		if err != nil {
			t.Fatalf("currencyPrefix(%q): %v", tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("currencyPrefix(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}

	if _, err := NewCompositor(WithCurrency("NOPE")); err == nil {
		t.Fatal("expected unknown currency to fail")
	}
}
