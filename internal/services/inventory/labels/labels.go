// Package labels runs the artifact pipeline on the server for one stored
// item and streams the resulting PDF.
package labels

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	"github.com/louisbranch/inventag/internal/artifact/session"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
)

// Config wires a Renderer.
type Config struct {
	Lookup     artifact.Lookup
	Compositor *document.Compositor
	Loader     asset.Loader
	BrandRef   string
}

// Renderer produces labels and symbols for stored items.
type Renderer struct {
	cfg     Config
	encoder *symbol.Encoder
}

// NewRenderer builds a Renderer.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Compositor == nil {
		return nil, errors.New("compositor is required")
	}
	if cfg.Loader == nil {
		return nil, errors.New("asset loader is required")
	}
	return &Renderer{cfg: cfg, encoder: symbol.NewEncoder()}, nil
}

// Render composes the label for item and writes the PDF to w. Each call
// uses its own session; nothing is held afterwards.
func (r *Renderer) Render(ctx context.Context, item artifact.Item, w io.Writer) (session.Receipt, error) {
	sess, err := session.New(session.Config{
		Lookup:     r.cfg.Lookup,
		Encoder:    r.encoder,
		Compositor: r.cfg.Compositor,
		Loader:     r.cfg.Loader,
		BrandRef:   r.cfg.BrandRef,
		Sink:       session.WriterSink{W: w},
	})
	if err != nil {
		return session.Receipt{}, err
	}
	defer sess.Close()

	sess.SetItem(item)
	if err := sess.BlurIdentifier(); err != nil {
		return session.Receipt{}, err
	}
	if _, err := sess.ProduceArtifact(ctx).Wait(ctx); err != nil {
		return session.Receipt{}, fmt.Errorf("produce label: %w", err)
	}
	return sess.ExportArtifact(ctx)
}

// Symbol paints the lookup symbol for id.
func (r *Renderer) Symbol(id string) (symbol.Snapshot, error) {
	raster := symbol.NewRaster()
	if err := r.encoder.Encode(raster, r.cfg.Lookup.URL(id)); err != nil {
		return symbol.Snapshot{}, err
	}
	snap := raster.Snapshot()
	if snap.Empty() {
		return symbol.Snapshot{}, errors.New("item id is required")
	}
	return snap, nil
}

// LookupURL returns the URL encoded in id's symbol.
func (r *Renderer) LookupURL(id string) string {
	return r.cfg.Lookup.URL(id)
}
