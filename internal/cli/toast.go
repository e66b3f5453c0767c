package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/valter-silva-au/pm-console/internal/core"
)

// ToastRouter is the core.Toaster handed to the screens. It forwards every
// notification to the current sink.
type ToastRouter struct {
	mu   sync.Mutex
	sink core.Toaster
}

// NewToastRouter creates a router printing to w.
func NewToastRouter(w io.Writer) *ToastRouter {
	return &ToastRouter{sink: writerToaster{w: w}}
}

func (r *ToastRouter) current() core.Toaster {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink
}

func (r *ToastRouter) Success(msg string) { r.current().Success(msg) }
func (r *ToastRouter) Error(msg string)   { r.current().Error(msg) }
func (r *ToastRouter) Info(msg string)    { r.current().Info(msg) }

// Redirect replaces the sink and returns a function restoring the old one.
func (r *ToastRouter) Redirect(sink core.Toaster) (restore func()) {
	r.mu.Lock()
	prev := r.sink
	r.sink = sink
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.sink = prev
		r.mu.Unlock()
	}
}

// writerToaster prints notifications on a terminal stream. Errors are
// skipped: every screen error also comes back as the command's error,
// which cobra prints.
type writerToaster struct {
	w io.Writer
}

func (t writerToaster) Success(msg string) { fmt.Fprintln(t.w, "ok: "+msg) }
func (t writerToaster) Error(string)       {}
func (t writerToaster) Info(msg string)    { fmt.Fprintln(t.w, msg) }
