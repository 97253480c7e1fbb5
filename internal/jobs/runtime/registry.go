package runtime

import (
	"fmt"
	"sort"
	"sync"
)

// Handler runs one job type. Run reports progress and the terminal state
// through ctx; a returned error marks the attempt failed and retryable.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Registry maps job_type to its handler. The worker claims only rows whose
// type is registered here.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds handlers, stopping at the first nil, unnamed or duplicate one.
func (r *Registry) Register(hs ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range hs {
		if h == nil {
			return fmt.Errorf("register job handler: nil handler")
		}
		jobType := h.Type()
		switch {
		case jobType == "":
			return fmt.Errorf("register job handler %T: empty job type", h)
		case r.handlers[jobType] != nil:
			return fmt.Errorf("register job handler %T: job_type=%s already taken", h, jobType)
		}
		r.handlers[jobType] = h
	}
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.handlers))
	for jobType := range r.handlers {
		out = append(out, jobType)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
