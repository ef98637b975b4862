package document

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// renderPDF replays the display list onto a single A4 page. Dates are pinned
// to stamp and the catalog is sorted so equal lists give equal bytes.
func renderPDF(ops []Op, stamp time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	for _, op := range ops {
		switch op.Kind {
		case OpFill:
			pdf.SetFillColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			pdf.Rect(op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, "F")
		case OpImage:
			opt := fpdf.ImageOptions{ImageType: op.Image.Type}
			pdf.RegisterImageOptionsReader(op.Image.Name, opt, bytes.NewReader(op.Image.Data))
			pdf.ImageOptions(op.Image.Name, op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, false, opt, 0, "")
		case OpText:
			text, err := enc.String(op.Text)
			if err != nil {
				return nil, err
			}
			pdf.SetFont(fontFamily, op.Font.Style, op.Font.Size)
			pdf.SetTextColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			pdf.Text(op.Rect.X, op.Rect.Y, text)
		}
		if err := pdf.Error(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
