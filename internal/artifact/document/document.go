package document

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/louisbranch/inventag/internal/artifact"
)

// Document is a composed label. It is immutable.
type Document struct {
	item       artifact.Item
	ops        []Op
	data       []byte
	digest     [32]byte
	composedAt time.Time
}

func newDocument(item artifact.Item, ops []Op, data []byte, composedAt time.Time) *Document {
	return &Document{
		item:       item,
		ops:        ops,
		data:       data,
		digest:     blake3.Sum256(data),
		composedAt: composedAt,
	}
}

// Item returns the item snapshot the document was composed from.
func (d *Document) Item() artifact.Item {
	return d.item
}

// ComposedAt returns the time stamped into the PDF metadata.
func (d *Document) ComposedAt() time.Time {
	return d.composedAt
}

// Filename returns the export name, item-<id>.pdf.
func (d *Document) Filename() string {
	return artifact.Filename(d.item.ID)
}

// Ops returns a copy of the display list.
func (d *Document) Ops() []Op {
	return cloneOps(d.ops)
}

// Bytes returns a copy of the serialized PDF.
func (d *Document) Bytes() []byte {
	return append([]byte(nil), d.data...)
}

// Size returns the serialized PDF length in bytes.
func (d *Document) Size() int {
	return len(d.data)
}

// WriteTo writes the serialized PDF to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(d.data).WriteTo(w)
}

// Digest returns the hex BLAKE3 digest of the serialized PDF.
func (d *Document) Digest() string {
	return hex.EncodeToString(d.digest[:])
}

// Preview renders the display list as plain text, one line per operation,
// in paint order.
func (d *Document) Preview() string {
	var b strings.Builder
	for _, op := range d.ops {
		switch op.Kind {
		case OpFill:
			fmt.Fprintf(&b, "[banner #%02X%02X%02X %gx%gmm]\n", op.Color.R, op.Color.G, op.Color.B, op.Rect.W, op.Rect.H)
		case OpImage:
			fmt.Fprintf(&b, "[%s %gx%gmm] %s\n", op.Image.Name, op.Rect.W, op.Rect.H, op.Image.Label)
		case OpText:
			b.WriteString(op.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
