// Package templates renders the public item detail page reached by scanning
// a label.
package templates

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// ItemDetailView is the data shown on the item detail page.
type ItemDetailView struct {
	ID          string
	Name        string
	Price       string
	Description string
	CreatedAt   time.Time
	LookupURL   string
	SymbolPNG   []byte

	// Display footprint of the symbol image, in CSS pixels.
	SymbolWidth  int
	SymbolHeight int
}

// ItemDetailPage renders the full HTML document for one item.
func ItemDetailPage(view ItemDetailView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "Item " + view.ID
		if _, err := fmt.Fprintf(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<style>body{font-family:Helvetica,Arial,sans-serif;margin:0}header{background:#1e90ff;color:#fff;padding:1rem 2rem;font-weight:bold}main{padding:1rem 2rem}dt{font-weight:bold}figure{margin:1.5rem 0}</style></head><body><header>BARCODE SYSTEM</header><main>`); err != nil {
			return err
		}
		if err := itemFields(view).Render(ctx, w); err != nil {
			return err
		}
		if err := itemSymbol(view).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func itemFields(view ItemDetailView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>%s</h1><dl>`, templ.EscapeString(view.Name)); err != nil {
			return err
		}
		rows := [][2]string{
			{"Item ID", view.ID},
			{"Name", view.Name},
			{"Price", view.Price},
			{"Description", view.Description},
		}
		if !view.CreatedAt.IsZero() {
			rows = append(rows, [2]string{"Created", view.CreatedAt.UTC().Format(time.RFC3339)})
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, `<dt>%s</dt><dd>%s</dd>`, templ.EscapeString(row[0]), templ.EscapeString(row[1])); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</dl>`)
		return err
	})
}

func itemSymbol(view ItemDetailView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(view.SymbolPNG) == 0 {
			return nil
		}
		src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(view.SymbolPNG)
		size := ""
		if view.SymbolWidth > 0 && view.SymbolHeight > 0 {
			size = fmt.Sprintf(` width="%d" height="%d"`, view.SymbolWidth, view.SymbolHeight)
		}
		_, err := fmt.Fprintf(w, `<figure><img src="%s"%s alt="%s"><figcaption>%s</figcaption></figure>`,
			src,
			size,
			templ.EscapeString("Barcode for item "+view.ID),
			templ.EscapeString(view.LookupURL))
		return err
	})
}

// NotFoundPage renders the page shown for unknown item ids.
func NotFoundPage(id string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><title>Item not found</title></head><body><main><h1>Item not found</h1><p>No item with id %s.</p></main></body></html>`,
			templ.EscapeString(id))
		return err
	})
}
