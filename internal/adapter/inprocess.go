package adapter

import (
	"context"
	"sync"

	"github.com/yourorg/skewsentry/internal/table"
)

// Func is an in-process feature producer: the Go analogue of the original
// tool's "module:function" dotted-path adapter (original_source's
// python_func.py), where Go has no dynamic import to fall back on.
type Func func(ctx context.Context, in table.Table) (table.Table, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Func{}
)

// Register makes fn available under name for NewInProcess to look up later.
// Examples (examples/offline, examples/online) call this from an init()
// function so their producers are reachable by name from spec YAML or CLI
// flags without the runner importing example code directly.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// inProcess adapts a registered Func to the Adapter interface.
type inProcess struct {
	name string
	fn   Func
}

// NewInProcess looks up a Func registered under name and wraps it as an
// Adapter. It fails with KindConfig if no such Func was registered, the
// closest Go analogue of the original's "could not import module" error.
func NewInProcess(name string) (Adapter, error) {
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, newError(KindConfig, nil, "no in-process adapter registered under name %q", name)
	}
	return &inProcess{name: name, fn: fn}, nil
}

func (a *inProcess) Produce(ctx context.Context, in table.Table) (table.Table, error) {
	out, err := a.fn(ctx, in)
	if err != nil {
		if ae, ok := err.(*Error); ok {
			return table.Table{}, ae
		}
		return table.Table{}, newError(KindReturnShape, err, "in-process adapter %q failed", a.name)
	}
	return out, nil
}
