package asset

import (
	"context"
	"sync"
)

// Future is the eventual outcome of a Load call. Done is closed exactly once,
// after the result is set.
type Future struct {
	done chan struct{}
	once sync.Once
	img  Image
	err  error
}

// Settle completes a Future produced by NewPromise. Only the first call has
// any effect.
type Settle func(Image, error)

// NewPromise returns an unsettled Future and the function that settles it.
func NewPromise() (*Future, Settle) {
	f := &Future{done: make(chan struct{})}
	return f, f.settle
}

// Resolved returns an already-settled successful Future.
func Resolved(img Image) *Future {
	f, settle := NewPromise()
	settle(img, nil)
	return f
}

// Failed returns an already-settled failed Future.
func Failed(err error) *Future {
	f, settle := NewPromise()
	settle(Image{}, err)
	return f
}

func (f *Future) settle(img Image, err error) {
	f.once.Do(func() {
		f.img = img
		f.err = err
		close(f.done)
	})
}

// Done is closed when the load settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled outcome. It returns ErrPending before Done is
// closed.
func (f *Future) Result() (Image, error) {
	select {
	case <-f.done:
		return f.img, f.err
	default:
		return Image{}, ErrPending
	}
}

// Wait blocks until the load settles or ctx ends.
func (f *Future) Wait(ctx context.Context) (Image, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return Image{}, ctx.Err()
	}
}
