package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	"github.com/louisbranch/inventag/internal/artifact/symbol"
)

// fakeLoader hands out promises the test settles explicitly.
type fakeLoader struct {
	mu      sync.Mutex
	settles []asset.Settle
	refs    []string
}

func (l *fakeLoader) Load(_ context.Context, ref string) *asset.Future {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, settle := asset.NewPromise()
	l.settles = append(l.settles, settle)
	l.refs = append(l.refs, ref)
	return f
}

func (l *fakeLoader) settle(t *testing.T, i int, img asset.Image, err error) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if i >= len(l.settles) {
		t.Fatalf("load %d was never requested", i)
	}
	l.settles[i](img, err)
}

func (l *fakeLoader) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.settles)
}

// memorySink records exported documents.
type memorySink struct {
	mu    sync.Mutex
	fail  error
	names []string
	data  [][]byte
}

func (s *memorySink) Export(_ context.Context, name string, doc *document.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.names = append(s.names, name)
	s.data = append(s.data, doc.Bytes())
	return "memory://" + name, nil
}

const lookupBase = "https://stock.example.com/api/itemdetails"

func brandImage(t *testing.T) asset.Image {
	t.Helper()
	img, err := asset.NewLibrary().Load(t.Context(), asset.BrandRef).Wait(t.Context())
	if err != nil {
		t.Fatalf("load brand: %v", err)
	}
	return img
}

// refusingEncoder fails for the listed payloads and paints the rest.
type refusingEncoder map[string]bool

func (e refusingEncoder) Encode(r *symbol.Raster, payload string) error {
	if e[payload] {
		return fmt.Errorf("%w: %q", symbol.ErrUnencodable, payload)
	}
	return symbol.NewEncoder().Encode(r, payload)
}

func newTestSession(t *testing.T, loader asset.Loader, sink Sink) *Session {
	t.Helper()
	return newSessionWith(t, lookupBase, Config{Loader: loader, Sink: sink})
}

// newSessionWith fills in the lookup and a fixed-clock compositor.
func newSessionWith(t *testing.T, base string, cfg Config) *Session {
	t.Helper()
	lookup, err := artifact.NewLookup(base)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	cfg.Lookup = lookup
	if cfg.Compositor == nil {
		compositor, err := document.NewCompositor(document.WithClock(func() time.Time {
			return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		}))
		if err != nil {
			t.Fatalf("compositor: %v", err)
		}
		cfg.Compositor = compositor
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// waitContinuations blocks until every asset continuation has returned.
func waitContinuations(t *testing.T, s *Session) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.continuations.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("asset continuations did not return")
	}
}

func waitComposition(t *testing.T, c *Composition) (*document.Document, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-c.Done():
	case <-ctx.Done():
		t.Fatal("composition did not settle")
	}
	return c.Result()
}

func widget() artifact.Item {
	return artifact.Item{ID: "7", Name: "Widget", Price: "9.99", Description: "A small widget"}
}

func TestProduceAndExportScenario(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	sink := &memorySink{}
	s := newTestSession(t, loader, sink)
	s.SetItem(widget())
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := s.Symbol().Payload; got != lookupBase+"/7" {
		t.Fatalf("symbol payload = %q", got)
	}

	comp := s.ProduceArtifact(t.Context())
	if s.State() != AwaitingAsset {
		t.Fatalf("state = %v, want %v", s.State(), AwaitingAsset)
	}
	if s.HasPending() {
		t.Fatal("document pending before asset resolved")
	}
	if loader.refs[0] != asset.BrandRef {
		t.Fatalf("brand ref = %q", loader.refs[0])
	}

	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, comp)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if s.State() != Composed || !s.HasPending() || s.Pending() != doc {
		t.Fatalf("state = %v pending = %v", s.State(), s.HasPending())
	}

	ops := doc.Ops()
	if ops[0].Kind != document.OpFill || ops[1].Image.Name != "brand" {
		t.Fatal("missing banner or brand")
	}
	fields := []string{"Item ID: 7", "Name: Widget", "Price: INR 9.99", "Description: A small widget"}
	for i, want := range fields {
		if ops[4+i].Text != want {
			t.Fatalf("field %d = %q, want %q", i, ops[4+i].Text, want)
		}
	}
	if ops[8].Image.Label != lookupBase+"/7" {
		t.Fatalf("symbol label = %q", ops[8].Image.Label)
	}

	receipt, err := s.ExportArtifact(t.Context())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if receipt.Filename != "item-7.pdf" || receipt.ItemID != "7" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if receipt.Digest != doc.Digest() || receipt.Size != len(doc.Bytes()) {
		t.Fatalf("receipt digest/size mismatch: %+v", receipt)
	}
	if s.State() != Idle || s.HasPending() {
		t.Fatalf("after export state = %v pending = %v", s.State(), s.HasPending())
	}
	if len(sink.names) != 1 || sink.names[0] != "item-7.pdf" || !bytes.Equal(sink.data[0], doc.Bytes()) {
		t.Fatalf("sink = %v", sink.names)
	}
}

func TestProduceWithoutIdentifierIsNoop(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newTestSession(t, loader, &memorySink{})
	s.SetItem(artifact.Item{Name: "Widget"})

	_, err := waitComposition(t, s.ProduceArtifact(t.Context()))
	if !errors.Is(err, ErrMissingIdentifier) {
		t.Fatalf("err = %v, want ErrMissingIdentifier", err)
	}
	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if !s.Symbol().Empty() {
		t.Fatal("raster was painted")
	}
	if loader.calls() != 0 {
		t.Fatal("asset was requested")
	}
}

func TestBlurWithBlankIdentifierLeavesRaster(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &fakeLoader{}, &memorySink{})
	s.SetItem(artifact.Item{ID: "42"})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	s.SetItem(artifact.Item{ID: "  "})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := s.Symbol().Payload; got != lookupBase+"/42" {
		t.Fatalf("payload = %q", got)
	}
}

func TestBlurPassesThroughEncoding(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &fakeLoader{}, &memorySink{})
	s.SetItem(artifact.Item{ID: "42"})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	want := []State{Encoding, Idle}
	for _, state := range want {
		select {
		case ev := <-s.Events():
			if ev.State != state {
				t.Fatalf("event = %v, want %v", ev.State, state)
			}
		default:
			t.Fatalf("missing %v event", state)
		}
	}
}

func TestBlurEscapesNonASCIIIdentifier(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &fakeLoader{}, &memorySink{})
	s.SetItem(artifact.Item{ID: "café"})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := s.Symbol().Payload; got != lookupBase+"/caf%C3%A9" {
		t.Fatalf("payload = %q", got)
	}
}

func TestBlurRejectsUnencodableLookup(t *testing.T) {
	t.Parallel()

	s := newSessionWith(t, "https://stock.example.com/artículos", Config{Loader: &fakeLoader{}, Sink: &memorySink{}})
	s.SetItem(artifact.Item{ID: "7"})
	if err := s.BlurIdentifier(); !errors.Is(err, symbol.ErrUnencodable) {
		t.Fatalf("err = %v, want ErrUnencodable", err)
	}
	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if !s.Symbol().Empty() {
		t.Fatal("raster was painted")
	}
}

func TestProduceWithUnencodableLookupStaysIdle(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newSessionWith(t, "https://stock.example.com/artículos", Config{Loader: loader, Sink: &memorySink{}})
	s.SetItem(widget())

	_, err := waitComposition(t, s.ProduceArtifact(t.Context()))
	if !errors.Is(err, symbol.ErrUnencodable) {
		t.Fatalf("err = %v, want ErrUnencodable", err)
	}
	if s.State() != Idle || s.HasPending() {
		t.Fatalf("state = %v pending = %v", s.State(), s.HasPending())
	}
	if loader.calls() != 0 {
		t.Fatal("asset was requested")
	}
}

func TestFailedProduceKeepsPendingDocument(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newSessionWith(t, lookupBase, Config{
		Encoder: refusingEncoder{lookupBase + "/2": true},
		Loader:  loader,
		Sink:    &memorySink{},
	})

	s.SetItem(artifact.Item{ID: "1"})
	comp := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, comp)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	s.SetItem(artifact.Item{ID: "2"})
	if _, err := waitComposition(t, s.ProduceArtifact(t.Context())); !errors.Is(err, symbol.ErrUnencodable) {
		t.Fatalf("err = %v, want ErrUnencodable", err)
	}
	if s.State() != Composed || s.Pending() != doc {
		t.Fatalf("state = %v, want the first document still composed", s.State())
	}
	if loader.calls() != 1 {
		t.Fatalf("loader calls = %d, want 1", loader.calls())
	}
	receipt, err := s.ExportArtifact(t.Context())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if receipt.Filename != "item-1.pdf" {
		t.Fatalf("filename = %q, want item-1.pdf", receipt.Filename)
	}
}

func TestFailedProduceKeepsInFlightComposition(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newSessionWith(t, lookupBase, Config{
		Encoder: refusingEncoder{lookupBase + "/2": true},
		Loader:  loader,
		Sink:    &memorySink{},
	})

	s.SetItem(artifact.Item{ID: "1"})
	first := s.ProduceArtifact(t.Context())
	s.SetItem(artifact.Item{ID: "2"})
	if _, err := waitComposition(t, s.ProduceArtifact(t.Context())); !errors.Is(err, symbol.ErrUnencodable) {
		t.Fatalf("err = %v, want ErrUnencodable", err)
	}
	if s.State() != AwaitingAsset {
		t.Fatalf("state = %v, want %v", s.State(), AwaitingAsset)
	}

	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, first)
	if err != nil {
		t.Fatalf("first composition: %v", err)
	}
	if doc.Item().ID != "1" || s.Pending() != doc {
		t.Fatal("first composition was not kept")
	}
}

func TestSecondCompositionReplacesFirst(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	sink := &memorySink{}
	s := newTestSession(t, loader, sink)
	brand := brandImage(t)

	s.SetItem(artifact.Item{ID: "1", Name: "First"})
	first := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brand, nil)
	if _, err := waitComposition(t, first); err != nil {
		t.Fatalf("first: %v", err)
	}

	s.SetItem(artifact.Item{ID: "2", Name: "Second"})
	second := s.ProduceArtifact(t.Context())
	if s.HasPending() {
		t.Fatal("first document still pending after new produce")
	}
	loader.settle(t, 1, brand, nil)
	doc, err := waitComposition(t, second)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	receipt, err := s.ExportArtifact(t.Context())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if receipt.Filename != "item-2.pdf" || !bytes.Equal(sink.data[0], doc.Bytes()) {
		t.Fatalf("exported %q, want the second composition", receipt.Filename)
	}
}

func TestInFlightCompositionIsSuperseded(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newTestSession(t, loader, &memorySink{})
	brand := brandImage(t)

	s.SetItem(artifact.Item{ID: "1"})
	first := s.ProduceArtifact(t.Context())
	s.SetItem(artifact.Item{ID: "2"})
	second := s.ProduceArtifact(t.Context())

	if _, err := waitComposition(t, first); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first err = %v, want ErrSuperseded", err)
	}

	// The stale asset arrives after the newer one.
	loader.settle(t, 1, brand, nil)
	doc, err := waitComposition(t, second)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	loader.settle(t, 0, brand, nil)
	waitContinuations(t, s)

	if s.Pending() != doc || doc.Item().ID != "2" {
		t.Fatal("stale continuation replaced the newer document")
	}
	if s.State() != Composed {
		t.Fatalf("state = %v, want composed", s.State())
	}
}

func TestExportReflectsSnapshotNotLaterEncode(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	sink := &memorySink{}
	s := newTestSession(t, loader, sink)

	s.SetItem(artifact.Item{ID: "1"})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	r1, err := s.Symbol().PNG()
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	comp := s.ProduceArtifact(t.Context())

	// Re-encode to R2 while the asset is still loading.
	s.SetItem(artifact.Item{ID: "2"})
	if err := s.BlurIdentifier(); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if s.Symbol().Payload != lookupBase+"/2" {
		t.Fatal("raster was not re-encoded")
	}

	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, comp)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	sym := doc.Ops()[8].Image
	if sym.Label != lookupBase+"/1" || !bytes.Equal(sym.Data, r1) {
		t.Fatalf("document symbol = %q, want R1", sym.Label)
	}

	receipt, err := s.ExportArtifact(t.Context())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if receipt.Filename != "item-1.pdf" {
		t.Fatalf("filename = %q, want item-1.pdf", receipt.Filename)
	}
}

func TestAssetFailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newTestSession(t, loader, &memorySink{})
	s.SetItem(widget())
	comp := s.ProduceArtifact(t.Context())

	boom := errors.New("brand unavailable")
	loader.settle(t, 0, asset.Image{}, boom)
	if _, err := waitComposition(t, comp); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if s.State() != Idle || s.HasPending() {
		t.Fatalf("state = %v pending = %v", s.State(), s.HasPending())
	}
	if _, err := s.ExportArtifact(t.Context()); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("export err = %v, want ErrNothingPending", err)
	}
}

func TestExportWithoutPendingDocument(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	s := newTestSession(t, &fakeLoader{}, sink)
	if _, err := s.ExportArtifact(t.Context()); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("err = %v, want ErrNothingPending", err)
	}
	if len(sink.names) != 0 {
		t.Fatal("sink was written")
	}
}

func TestSinkFailureKeepsDocumentPending(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	sink := &memorySink{fail: errors.New("disk full")}
	s := newTestSession(t, loader, sink)
	s.SetItem(widget())
	comp := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brandImage(t), nil)
	if _, err := waitComposition(t, comp); err != nil {
		t.Fatalf("compose: %v", err)
	}

	if _, err := s.ExportArtifact(t.Context()); err == nil {
		t.Fatal("expected export failure")
	}
	if s.State() != Composed || !s.HasPending() {
		t.Fatalf("state = %v pending = %v", s.State(), s.HasPending())
	}

	sink.mu.Lock()
	sink.fail = nil
	sink.mu.Unlock()
	if _, err := s.ExportArtifact(t.Context()); err != nil {
		t.Fatalf("retry export: %v", err)
	}
}

func TestDismiss(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newTestSession(t, loader, &memorySink{})
	s.SetItem(widget())

	comp := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brandImage(t), nil)
	if _, err := waitComposition(t, comp); err != nil {
		t.Fatalf("compose: %v", err)
	}
	s.Dismiss()
	if s.State() != Idle || s.HasPending() {
		t.Fatalf("state = %v pending = %v", s.State(), s.HasPending())
	}

	comp = s.ProduceArtifact(t.Context())
	s.Dismiss()
	if _, err := waitComposition(t, comp); !errors.Is(err, ErrDismissed) {
		t.Fatalf("err = %v, want ErrDismissed", err)
	}
	loader.settle(t, 1, brandImage(t), nil)
	waitContinuations(t, s)
	if s.State() != Idle || s.HasPending() {
		t.Fatalf("dismissed continuation changed state to %v", s.State())
	}
}

func TestCloseIgnoresLateCompletion(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	s := newTestSession(t, loader, &memorySink{})
	s.SetItem(widget())
	comp := s.ProduceArtifact(t.Context())
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := waitComposition(t, comp); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	waitContinuations(t, s)
	loader.settle(t, 0, brandImage(t), nil)
	if s.HasPending() {
		t.Fatal("closed session accepted a document")
	}
	if _, ok := <-drain(s.Events()); ok {
		t.Fatal("events channel still open")
	}
	if err := s.BlurIdentifier(); !errors.Is(err, ErrClosed) {
		t.Fatalf("blur err = %v, want ErrClosed", err)
	}
}

// drain discards buffered events and returns the closed channel.
func drain(ch <-chan Event) <-chan Event {
	for range ch {
	}
	return ch
}

func TestDirSinkWritesAtomically(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "labels")
	loader := &fakeLoader{}
	s := newTestSession(t, loader, DirSink{Dir: dir})
	s.SetItem(artifact.Item{ID: "42", Name: "Bolt"})
	comp := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, comp)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	receipt, err := s.ExportArtifact(t.Context())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(dir, "item-42.pdf")
	if receipt.Location != want {
		t.Fatalf("location = %q, want %q", receipt.Location, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Equal(data, doc.Bytes()) {
		t.Fatal("exported bytes differ from document")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1", len(entries))
	}
}

func TestWriterSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	loader := &fakeLoader{}
	s := newTestSession(t, loader, WriterSink{W: &buf})
	s.SetItem(widget())
	comp := s.ProduceArtifact(t.Context())
	loader.settle(t, 0, brandImage(t), nil)
	doc, err := waitComposition(t, comp)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if _, err := s.ExportArtifact(t.Context()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), doc.Bytes()) {
		t.Fatal("writer received different bytes")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without loader")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if got := AwaitingAsset.String(); got != "awaiting_asset" {
		t.Fatalf("String() = %q", got)
	}
	if got := State(99).String(); got != "State(99)" {
		t.Fatalf("String() = %q", got)
	}
}
