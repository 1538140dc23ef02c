package server

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/datafab/collab-meet/internal/errors"
	"github.com/datafab/collab-meet/widget"
)

// ViewManager tracks the server-rendered meeting views. Each open view
// owns one widget controller; the rendered page carries the bootstrap
// script tag, so the script-loaded signal fires at render time, and the
// page posts widget events back to the events route where they are
// translated and delivered into the controller.
type ViewManager struct {
	scriptURL  string
	meetDomain string
	roomPrefix string

	lock  sync.Mutex
	views map[string]*MeetingView
}

// NewViewManager creates a ViewManager for the configured widget origin.
func NewViewManager(scriptURL, meetDomain, roomPrefix string) *ViewManager {
	return &ViewManager{
		scriptURL:  scriptURL,
		meetDomain: meetDomain,
		roomPrefix: roomPrefix,
		views:      make(map[string]*MeetingView),
	}
}

// MeetingView is one open meeting page: the script slot the page's tag
// occupies plus the controller driving the widget lifecycle.
type MeetingView struct {
	roomID     string
	slot       *scriptSlot
	factory    *renderFactory
	controller *widget.Controller
}

// Controller exposes the view's widget controller.
func (v *MeetingView) Controller() *widget.Controller {
	return v.controller
}

// Open returns the view for roomID, creating and mounting it on first
// use. Reopening an existing view refreshes the identity shown in the
// widget without restarting the lifecycle.
func (m *ViewManager) Open(roomID string, user widget.UserInfo) (*MeetingView, error) {
	m.lock.Lock()
	if view, ok := m.views[roomID]; ok {
		m.lock.Unlock()
		view.controller.SetUser(user)
		return view, nil
	}

	view := &MeetingView{
		roomID:  roomID,
		slot:    newScriptSlot(),
		factory: &renderFactory{},
	}

	loader, err := widget.NewLoader(view.slot, m.scriptURL)
	if err != nil {
		m.lock.Unlock()
		return nil, errors.Wrap(err, "[ViewManager Open] loader construction failed")
	}
	controller, err := widget.NewController(loader, view.factory, m.meetDomain, m.roomPrefix,
		widget.WithOnLeave(func() { m.drop(roomID) }),
	)
	if err != nil {
		m.lock.Unlock()
		return nil, errors.Wrap(err, "[ViewManager Open] controller construction failed")
	}
	view.controller = controller
	m.views[roomID] = view
	m.lock.Unlock()

	// The rendered page embeds the script tag, so mounting settles the
	// load synchronously and the widget constructs here.
	controller.Mount(roomID)
	controller.SetUser(user)

	if err := controller.Err(); err != nil {
		m.drop(roomID)
		return nil, err
	}
	return view, nil
}

// Get returns the open view for roomID.
func (m *ViewManager) Get(roomID string) (*MeetingView, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	view, ok := m.views[roomID]
	return view, ok
}

// Close unmounts and forgets the view for roomID. Closing an unknown
// room is a no-op.
func (m *ViewManager) Close(roomID string) {
	m.lock.Lock()
	view, ok := m.views[roomID]
	delete(m.views, roomID)
	m.lock.Unlock()

	if ok {
		view.controller.Unmount()
	}
}

// Deliver translates an external event name and hands it to the view's
// widget handle. Unknown event names are ignored at this boundary.
func (m *ViewManager) Deliver(roomID, wireName string, payload map[string]interface{}) error {
	m.lock.Lock()
	view, ok := m.views[roomID]
	m.lock.Unlock()
	if !ok {
		return errors.Wrapf(apperrors.ErrNotFound, "[ViewManager Deliver] no open view for room %q", roomID)
	}

	kind, known := widget.KindFromWireName(wireName)
	if !known {
		log.Debug().Str("event", wireName).Str("room", roomID).Msg("ignoring unrecognised widget event")
		return nil
	}

	handle := view.factory.current()
	if handle == nil {
		return errors.Wrapf(apperrors.ErrWidgetUnavailable, "[ViewManager Deliver] no live widget for room %q", roomID)
	}
	handle.deliver(widget.Event{Kind: kind, Payload: payload})
	return nil
}

func (m *ViewManager) drop(roomID string) {
	m.lock.Lock()
	delete(m.views, roomID)
	m.lock.Unlock()
}

// scriptSlot is the ScriptInjector behind a server-rendered page. The
// tag is part of the rendered HTML, so injection succeeds immediately.
type scriptSlot struct {
	lock     sync.Mutex
	injected map[string]bool
}

func newScriptSlot() *scriptSlot {
	return &scriptSlot{injected: make(map[string]bool)}
}

func (s *scriptSlot) HasScript(src string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.injected[src]
}

func (s *scriptSlot) InjectScript(src string, onLoad func(), onError func(err error)) {
	s.lock.Lock()
	s.injected[src] = true
	s.lock.Unlock()
	onLoad()
}

func (s *scriptSlot) RemoveScript(src string) {
	s.lock.Lock()
	delete(s.injected, src)
	s.lock.Unlock()
}

// renderFactory records the one handle constructed per view so the
// events route can deliver into it.
type renderFactory struct {
	lock   sync.Mutex
	handle *renderHandle
}

func (f *renderFactory) New(domain string, options widget.Options) (widget.Handle, error) {
	handle := &renderHandle{
		domain:    domain,
		options:   options,
		listeners: make(map[widget.EventKind][]func(widget.Event)),
	}
	f.lock.Lock()
	f.handle = handle
	f.lock.Unlock()
	return handle, nil
}

func (f *renderFactory) current() *renderHandle {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.handle == nil || f.handle.isDisposed() {
		return nil
	}
	return f.handle
}

// renderHandle stands in for the live widget on a rendered page. It
// keeps the construction options for the template and routes delivered
// events to the controller's registered listeners.
type renderHandle struct {
	domain  string
	options widget.Options

	lock      sync.Mutex
	listeners map[widget.EventKind][]func(widget.Event)
	commands  []string
	disposed  bool
}

func (h *renderHandle) AddEventListener(kind widget.EventKind, callback func(widget.Event)) {
	h.lock.Lock()
	h.listeners[kind] = append(h.listeners[kind], callback)
	h.lock.Unlock()
}

func (h *renderHandle) ExecuteCommand(command string, args ...interface{}) {
	h.lock.Lock()
	h.commands = append(h.commands, command)
	h.lock.Unlock()
}

func (h *renderHandle) Dispose() {
	h.lock.Lock()
	h.disposed = true
	h.listeners = make(map[widget.EventKind][]func(widget.Event))
	h.lock.Unlock()
}

func (h *renderHandle) isDisposed() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.disposed
}

func (h *renderHandle) deliver(event widget.Event) {
	h.lock.Lock()
	callbacks := append([]func(widget.Event){}, h.listeners[event.Kind]...)
	h.lock.Unlock()

	for _, callback := range callbacks {
		callback(event)
	}
}
