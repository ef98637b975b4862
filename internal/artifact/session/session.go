// Package session drives one editing session's label pipeline: encode the
// item's lookup URL, wait for the brand mark, compose, then hold the result
// until the user exports or dismisses it.
//
// At most one document is pending at a time. A newer ProduceArtifact call
// supersedes any composition still waiting on its asset, and continuations
// that lost the race never touch session state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
)

const tracerName = "github.com/louisbranch/inventag/internal/artifact/session"

const eventBuffer = 32

var (
	// ErrMissingIdentifier is returned when producing without an item id.
	ErrMissingIdentifier = document.ErrMissingIdentifier
	// ErrNothingPending is returned when exporting without a composed document.
	ErrNothingPending = errors.New("no pending document")
	// ErrSuperseded settles a composition replaced by a newer request.
	ErrSuperseded = errors.New("composition superseded")
	// ErrDismissed settles a composition the user dismissed before it finished.
	ErrDismissed = errors.New("composition dismissed")
	// ErrClosed is returned once the session is closed.
	ErrClosed = errors.New("session closed")
	// ErrInFlight is returned by Composition.Result before it settles.
	ErrInFlight = errors.New("composition in flight")
)

// SymbolEncoder paints a payload onto a raster, leaving it untouched on error.
type SymbolEncoder interface {
	Encode(r *symbol.Raster, payload string) error
}

// Config wires a Session to its collaborators. Loader, Compositor and Sink
// are required.
type Config struct {
	Lookup     artifact.Lookup
	Encoder    SymbolEncoder
	Compositor *document.Compositor
	Loader     asset.Loader
	BrandRef   string
	Sink       Sink
	Tracer     trace.Tracer
	Now        func() time.Time
}

// Receipt describes a completed export.
type Receipt struct {
	ItemID     string
	Filename   string
	Location   string
	Size       int
	Digest     string
	ExportedAt time.Time
}

// Session is one user's artifact workflow. It is safe for concurrent use.
type Session struct {
	cfg Config

	mu       sync.Mutex
	item     artifact.Item
	raster   *symbol.Raster
	state    State
	pending  *document.Document
	inflight *Composition
	gen      uint64
	closed   bool
	done     chan struct{}
	events   chan Event

	// continuations tracks asset continuations still running.
	continuations sync.WaitGroup
}

// New builds an idle Session.
func New(cfg Config) (*Session, error) {
	if cfg.Loader == nil {
		return nil, errors.New("asset loader is required")
	}
	if cfg.Compositor == nil {
		return nil, errors.New("compositor is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("export sink is required")
	}
	if cfg.Encoder == nil {
		cfg.Encoder = symbol.NewEncoder()
	}
	if cfg.BrandRef == "" {
		cfg.BrandRef = asset.BrandRef
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		cfg:    cfg,
		raster: symbol.NewRaster(),
		done:   make(chan struct{}),
		events: make(chan Event, eventBuffer),
	}, nil
}

// Events delivers every state the session enters. Slow readers miss events
// rather than block the session; State is always authoritative. The channel
// is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Item returns the item being edited.
func (s *Session) Item() artifact.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}

// HasPending reports whether a composed document awaits export. The export
// affordance should only be offered while this is true.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Pending returns the document awaiting export, or nil.
func (s *Session) Pending() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Symbol returns a copy of the raster as currently painted.
func (s *Session) Symbol() symbol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raster.Snapshot()
}

// SetItem replaces the item being edited. It does not re-encode the symbol.
func (s *Session) SetItem(item artifact.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = item
}

// BlurIdentifier re-encodes the symbol from the current item id, as when the
// id field loses focus. A blank id leaves the raster as it is.
func (s *Session) BlurIdentifier() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.item.HasID() {
		return nil
	}
	return s.encodeLocked()
}

// encodeLocked paints the lookup URL for the current id. The Encoding state
// is only surfaced when the session is otherwise idle.
func (s *Session) encodeLocked() error {
	payload := s.cfg.Lookup.URL(s.item.ID)
	idle := s.state == Idle
	if idle {
		s.setStateLocked(Encoding, nil)
	}
	err := s.cfg.Encoder.Encode(s.raster, payload)
	if idle {
		s.setStateLocked(Idle, err)
	}
	if err != nil {
		return fmt.Errorf("encode symbol: %w", err)
	}
	return nil
}

// ProduceArtifact starts composing a label for the current item. Any held
// document is discarded and any composition still waiting on its asset is
// superseded. Without an item id it is a no-op that returns a composition
// already settled with ErrMissingIdentifier. If the symbol cannot be
// re-encoded the session keeps its prior state.
//
// The item and symbol are captured now; the document is composed only once
// the brand asset has loaded.
func (s *Session) ProduceArtifact(ctx context.Context) *Composition {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return settledComposition(ErrClosed)
	}
	if !s.item.HasID() {
		return settledComposition(ErrMissingIdentifier)
	}

	ctx, span := s.cfg.Tracer.Start(ctx, "artifact.produce",
		trace.WithAttributes(attribute.String("item.id", s.item.ID)))

	if s.raster.Payload() != s.cfg.Lookup.URL(s.item.ID) {
		if err := s.encodeLocked(); err != nil {
			endSpan(span, err)
			return settledComposition(err)
		}
	}

	if s.pending != nil {
		s.pending = nil
		s.setStateLocked(Discarded, nil)
		s.setStateLocked(Idle, nil)
	}
	s.abandonLocked(ErrSuperseded)
	if s.state != Idle {
		s.setStateLocked(Idle, nil)
	}

	item := s.item
	snap := s.raster.Snapshot()
	comp := newComposition()
	s.gen++
	gen := s.gen
	s.inflight = comp
	s.setStateLocked(AwaitingAsset, nil)

	future := s.cfg.Loader.Load(ctx, s.cfg.BrandRef)
	s.continuations.Add(1)
	go func() {
		defer s.continuations.Done()
		s.await(ctx, span, gen, future, item, snap, comp)
	}()
	return comp
}

// await is the continuation of the brand asset's completion notification.
func (s *Session) await(ctx context.Context, span trace.Span, gen uint64, future *asset.Future, item artifact.Item, snap symbol.Snapshot, comp *Composition) {
	select {
	case <-future.Done():
	case <-s.done:
		comp.settle(nil, ErrClosed)
		endSpan(span, ErrClosed)
		return
	}
	brand, loadErr := future.Result()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		// Superseded, dismissed, or closed: comp was already settled.
		endSpan(span, ErrSuperseded)
		return
	}
	s.inflight = nil

	if loadErr != nil {
		log.Printf("artifact: brand asset for item %q: %v", item.ID, loadErr)
		s.setStateLocked(Idle, loadErr)
		comp.settle(nil, loadErr)
		endSpan(span, loadErr)
		return
	}

	_, composeSpan := s.cfg.Tracer.Start(ctx, "artifact.compose")
	doc, err := s.cfg.Compositor.Compose(item, snap, brand)
	endSpan(composeSpan, err)
	if err != nil {
		err = fmt.Errorf("compose document: %w", err)
		s.setStateLocked(Idle, err)
		comp.settle(nil, err)
		endSpan(span, err)
		return
	}

	s.pending = doc
	s.setStateLocked(Composed, nil)
	comp.settle(doc, nil)
	endSpan(span, nil)
}

// ExportArtifact hands the pending document to the sink under
// item-<id>.pdf. If the sink fails the document stays pending.
func (s *Session) ExportArtifact(ctx context.Context) (Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Receipt{}, ErrClosed
	}
	if s.pending == nil {
		return Receipt{}, ErrNothingPending
	}
	doc := s.pending

	ctx, span := s.cfg.Tracer.Start(ctx, "artifact.export",
		trace.WithAttributes(attribute.String("item.id", doc.Item().ID)))
	name := doc.Filename()
	location, err := s.cfg.Sink.Export(ctx, name, doc)
	if err != nil {
		err = fmt.Errorf("export %s: %w", name, err)
		endSpan(span, err)
		return Receipt{}, err
	}
	endSpan(span, nil)

	s.pending = nil
	s.setStateLocked(Exported, nil)
	s.setStateLocked(Idle, nil)
	return Receipt{
		ItemID:     doc.Item().ID,
		Filename:   name,
		Location:   location,
		Size:       doc.Size(),
		Digest:     doc.Digest(),
		ExportedAt: s.cfg.Now(),
	}, nil
}

// Dismiss discards the pending document, or abandons a composition still
// waiting on its asset. Otherwise it does nothing.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch {
	case s.pending != nil:
		s.pending = nil
		s.setStateLocked(Discarded, nil)
		s.setStateLocked(Idle, nil)
	case s.inflight != nil:
		s.abandonLocked(ErrDismissed)
		s.setStateLocked(Idle, nil)
	}
}

// Close tears the session down. Completions arriving afterwards are ignored.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.abandonLocked(ErrClosed)
	s.closed = true
	s.pending = nil
	close(s.done)
	close(s.events)
	return nil
}

// abandonLocked settles the in-flight composition with err and invalidates
// its continuation.
func (s *Session) abandonLocked(err error) {
	if s.inflight == nil {
		return
	}
	s.gen++
	s.inflight.settle(nil, err)
	s.inflight = nil
}

func (s *Session) setStateLocked(state State, err error) {
	s.state = state
	select {
	case s.events <- Event{State: state, Err: err}:
	default:
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
