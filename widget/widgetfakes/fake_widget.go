package widgetfakes

import (
	"errors"
	"sync"

	"github.com/datafab/collab-meet/widget"
)

var (
	_ widget.ScriptInjector = (*FakeInjector)(nil)
	_ widget.Factory        = (*FakeFactory)(nil)
	_ widget.Handle         = (*FakeHandle)(nil)
)

// FakeInjector records script tags and lets tests fire the async load
// completion on demand, which is how the stale-callback guards get
// exercised.
type FakeInjector struct {
	lock    sync.Mutex
	scripts map[string]bool
	pending []pendingLoad
}

type pendingLoad struct {
	src     string
	onLoad  func()
	onError func(error)
}

func NewFakeInjector() *FakeInjector {
	return &FakeInjector{scripts: make(map[string]bool)}
}

func (i *FakeInjector) HasScript(src string) bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.scripts[src]
}

func (i *FakeInjector) InjectScript(src string, onLoad func(), onError func(err error)) {
	i.lock.Lock()
	i.scripts[src] = true
	i.pending = append(i.pending, pendingLoad{src: src, onLoad: onLoad, onError: onError})
	i.lock.Unlock()
}

func (i *FakeInjector) RemoveScript(src string) {
	i.lock.Lock()
	defer i.lock.Unlock()
	delete(i.scripts, src)
}

// ScriptCount returns how many script tags are currently attached.
func (i *FakeInjector) ScriptCount() int {
	i.lock.Lock()
	defer i.lock.Unlock()
	return len(i.scripts)
}

// FireLoad completes every pending load successfully.
func (i *FakeInjector) FireLoad() {
	for _, p := range i.takePending() {
		p.onLoad()
	}
}

// FireError fails every pending load.
func (i *FakeInjector) FireError(err error) {
	for _, p := range i.takePending() {
		p.onError(err)
	}
}

func (i *FakeInjector) takePending() []pendingLoad {
	i.lock.Lock()
	defer i.lock.Unlock()
	pending := i.pending
	i.pending = nil
	return pending
}

// FakeFactory returns FakeHandles and records construction calls.
type FakeFactory struct {
	lock    sync.Mutex
	handles []*FakeHandle
	FailNew bool
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{}
}

func (f *FakeFactory) New(domain string, options widget.Options) (widget.Handle, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.FailNew {
		return nil, errors.New("external constructor not installed")
	}
	handle := &FakeHandle{
		Domain:    domain,
		Options:   options,
		listeners: make(map[widget.EventKind][]func(widget.Event)),
	}
	f.handles = append(f.handles, handle)
	return handle, nil
}

// Handles returns every handle constructed so far.
func (f *FakeFactory) Handles() []*FakeHandle {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]*FakeHandle(nil), f.handles...)
}

// FakeHandle records listeners and disposal.
type FakeHandle struct {
	Domain  string
	Options widget.Options

	lock      sync.Mutex
	listeners map[widget.EventKind][]func(widget.Event)
	disposed  int
	commands  []string
}

func (h *FakeHandle) AddEventListener(kind widget.EventKind, callback func(widget.Event)) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.listeners[kind] = append(h.listeners[kind], callback)
}

func (h *FakeHandle) ExecuteCommand(command string, _ ...interface{}) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.commands = append(h.commands, command)
}

func (h *FakeHandle) Dispose() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.disposed++
}

// Emit delivers an event to every listener registered for its kind.
func (h *FakeHandle) Emit(event widget.Event) {
	h.lock.Lock()
	callbacks := append(([]func(widget.Event))(nil), h.listeners[event.Kind]...)
	h.lock.Unlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

// DisposeCount returns how many times Dispose was called.
func (h *FakeHandle) DisposeCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.disposed
}

// ListenerKinds returns the kinds that have at least one listener.
func (h *FakeHandle) ListenerKinds() []widget.EventKind {
	h.lock.Lock()
	defer h.lock.Unlock()

	kinds := make([]widget.EventKind, 0, len(h.listeners))
	for kind := range h.listeners {
		kinds = append(kinds, kind)
	}
	return kinds
}
