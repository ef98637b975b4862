package document

import "fmt"

// OpKind identifies a paint operation.
type OpKind int

const (
	OpFill OpKind = iota + 1
	OpImage
	OpText
)

func (k OpKind) String() string {
	switch k {
	case OpFill:
		return "fill"
	case OpImage:
		return "image"
	case OpText:
		return "text"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Font selects a core font face.
type Font struct {
	Style string
	Size  float64
}

// ImageData is an image embedded in the display list.
type ImageData struct {
	Name  string
	Type  string
	Label string
	Data  []byte
}

// Op is one paint operation. Fill and image ops use Rect; text ops use Rect.X
// and Rect.Y as the baseline origin.
type Op struct {
	Kind  OpKind
	Rect  Rect
	Color Color
	Font  Font
	Text  string
	Image ImageData
}

func fillOp(r Rect, c Color) Op {
	return Op{Kind: OpFill, Rect: r, Color: c}
}

func imageOp(r Rect, img ImageData) Op {
	return Op{Kind: OpImage, Rect: r, Image: img}
}

func textOp(x, y float64, font Font, c Color, text string) Op {
	return Op{Kind: OpText, Rect: Rect{X: x, Y: y}, Font: font, Color: c, Text: text}
}

func cloneOps(ops []Op) []Op {
	out := make([]Op, len(ops))
	for i, op := range ops {
		out[i] = op
		if op.Image.Data != nil {
			out[i].Image.Data = append([]byte(nil), op.Image.Data...)
		}
	}
	return out
}
