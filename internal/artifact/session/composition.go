package session

import (
	"context"
	"sync"

	"github.com/louisbranch/inventag/internal/artifact/document"
)

// Composition is the eventual outcome of one ProduceArtifact call.
type Composition struct {
	done chan struct{}
	once sync.Once
	doc  *document.Document
	err  error
}

func newComposition() *Composition {
	return &Composition{done: make(chan struct{})}
}

func settledComposition(err error) *Composition {
	c := newComposition()
	c.settle(nil, err)
	return c
}

func (c *Composition) settle(doc *document.Document, err error) {
	c.once.Do(func() {
		c.doc = doc
		c.err = err
		close(c.done)
	})
}

// Done is closed once the composition succeeds, fails, or is abandoned.
func (c *Composition) Done() <-chan struct{} {
	return c.done
}

// Result returns the composed document, or the reason none was produced.
// It returns ErrInFlight while the composition is still running.
func (c *Composition) Result() (*document.Document, error) {
	select {
	case <-c.done:
		return c.doc, c.err
	default:
		return nil, ErrInFlight
	}
}

// Wait blocks until the composition settles or ctx ends.
func (c *Composition) Wait(ctx context.Context) (*document.Document, error) {
	select {
	case <-c.done:
		return c.doc, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
