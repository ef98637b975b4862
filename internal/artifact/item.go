package artifact

import (
	"fmt"
	"net/url"
	"strings"
)

// Item is the subject of a label. Price is a display string and is never
// parsed as a number.
type Item struct {
	ID          string
	Name        string
	Price       string
	Description string
}

// HasID reports whether the item carries a usable identifier.
func (i Item) HasID() bool {
	return strings.TrimSpace(i.ID) != ""
}

// Filename returns the export name for the label of the item with id.
func Filename(id string) string {
	return fmt.Sprintf("item-%s.pdf", strings.TrimSpace(id))
}

// DefaultLookupBase is the public item details route encoded into symbols
// when no base is configured.
const DefaultLookupBase = "http://localhost:8093/api/itemdetails"

// Lookup derives the URL a scanned symbol resolves to.
type Lookup struct {
	base string
}

// NewLookup returns a Lookup rooted at base. An empty base falls back to
// DefaultLookupBase.
func NewLookup(base string) (Lookup, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultLookupBase
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return Lookup{}, fmt.Errorf("parse lookup base: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Lookup{}, fmt.Errorf("lookup base %q must be an http(s) URL", base)
	}
	return Lookup{base: base}, nil
}

// URL returns the lookup URL for id, or "" when id is blank.
func (l Lookup) URL(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	base := l.base
	if base == "" {
		base = DefaultLookupBase
	}
	return base + "/" + url.PathEscape(id)
}
