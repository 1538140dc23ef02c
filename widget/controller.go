package widget

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/datafab/collab-meet/internal/errors"
)

// Handle is the live embedded conferencing instance returned by the
// external widget constructor.
type Handle interface {
	AddEventListener(kind EventKind, callback func(Event))
	ExecuteCommand(command string, args ...interface{})
	Dispose()
}

// Factory constructs widget handles. The production factory wraps the
// global constructor the remote script installs; tests substitute fakes.
type Factory interface {
	New(domain string, options Options) (Handle, error)
}

// ControllerState tracks one mounted meeting view.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateScriptLoading
	StateScriptLoaded
	StateWidgetActive
	StateError
	StateDisposed
)

func (s ControllerState) String() string {
	switch s {
	case StateScriptLoading:
		return "script-loading"
	case StateScriptLoaded:
		return "script-loaded"
	case StateWidgetActive:
		return "widget-active"
	case StateError:
		return "error"
	case StateDisposed:
		return "disposed"
	default:
		return "idle"
	}
}

// Controller manages the lifecycle of the embedded conferencing widget
// for one mounted meeting view: load the script once, construct at most
// one handle, wire the fixed event set, and guarantee disposal on
// teardown. The widget is only constructed once the script-loaded and
// user-resolved signals have BOTH arrived; the two arrive independently
// and in either order, so the conjunction is re-checked on every signal.
type Controller struct {
	loader     *Loader
	factory    Factory
	meetDomain string
	roomPrefix string
	onLeave    func()

	lock         sync.Mutex
	state        ControllerState
	generation   int // bumped on Unmount; stale async completions are no-ops
	roomID       string
	user         *UserInfo
	handle       Handle
	scriptLoaded bool
	lastErr      error
}

// ControllerOption modifies the Controller instance.
type ControllerOption func(*Controller)

// WithOnLeave sets the navigation hook invoked when the widget reports
// readyToClose or the meeting is ended explicitly.
func WithOnLeave(onLeave func()) ControllerOption {
	return func(c *Controller) {
		c.onLeave = onLeave
	}
}

// NewController creates a controller bound to a loader and factory.
func NewController(loader *Loader, factory Factory, meetDomain, roomPrefix string, options ...ControllerOption) (*Controller, error) {
	if loader == nil {
		return nil, errors.New("[NewController] loader is required")
	}
	if factory == nil {
		return nil, errors.New("[NewController] factory is required")
	}
	if meetDomain == "" {
		return nil, errors.New("[NewController] meet domain is required")
	}

	c := &Controller{
		loader:     loader,
		factory:    factory,
		meetDomain: meetDomain,
		roomPrefix: roomPrefix,
		onLeave:    func() {},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State returns the controller state.
func (c *Controller) State() ControllerState {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Err returns the error that moved the controller to StateError.
func (c *Controller) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastErr
}

// Active reports whether a live handle exists.
func (c *Controller) Active() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.handle != nil
}

// Mount starts the lifecycle for a meeting view. Mounting while a
// lifecycle is already running is a no-op; the single-handle invariant
// is a presence check, never a queue or a replace.
func (c *Controller) Mount(roomID string) {
	c.lock.Lock()
	if c.state != StateIdle && c.state != StateDisposed {
		c.lock.Unlock()
		return
	}
	c.state = StateScriptLoading
	c.roomID = roomID
	c.scriptLoaded = false
	c.lastErr = nil
	generation := c.generation
	c.lock.Unlock()

	c.loader.Ensure(func(err error) {
		c.onScriptSettled(generation, err)
	})
}

// SetUser delivers the user-resolved signal.
func (c *Controller) SetUser(user UserInfo) {
	c.lock.Lock()
	c.user = &user
	c.lock.Unlock()

	c.maybeStart()
}

// Unmount tears the view down: dispose the handle, release the script,
// and invalidate any in-flight async completion. Idempotent.
func (c *Controller) Unmount() {
	c.lock.Lock()
	c.generation++
	handle := c.handle
	c.handle = nil
	c.user = nil
	c.scriptLoaded = false
	c.state = StateDisposed
	c.lock.Unlock()

	if handle != nil {
		handle.Dispose()
	}
	c.loader.Release()
}

func (c *Controller) onScriptSettled(generation int, err error) {
	c.lock.Lock()
	if generation != c.generation {
		// The view unmounted while the script was loading.
		c.lock.Unlock()
		return
	}
	if err != nil {
		c.state = StateError
		c.lastErr = err
		c.lock.Unlock()
		log.Error().Err(err).Msg("conferencing script failed, check the backend server")
		return
	}
	c.scriptLoaded = true
	if c.state == StateScriptLoading {
		c.state = StateScriptLoaded
	}
	c.lock.Unlock()

	c.maybeStart()
}

// maybeStart constructs the widget when every precondition holds:
// script loaded, user resolved, room known, no existing handle.
func (c *Controller) maybeStart() {
	c.lock.Lock()
	ready := c.state == StateScriptLoaded &&
		c.scriptLoaded &&
		c.user != nil &&
		c.roomID != "" &&
		c.handle == nil
	if !ready {
		c.lock.Unlock()
		return
	}
	generation := c.generation
	options := BuildOptions(c.roomPrefix, c.roomID, *c.user)
	c.lock.Unlock()

	handle, err := c.factory.New(c.meetDomain, options)

	c.lock.Lock()
	if generation != c.generation {
		c.lock.Unlock()
		if handle != nil {
			handle.Dispose()
		}
		return
	}
	if err != nil {
		c.state = StateError
		c.lastErr = fmt.Errorf("%w: %v", apperrors.ErrWidgetUnavailable, err)
		c.lock.Unlock()
		return
	}
	if c.handle != nil {
		// Lost the race to another start; keep the existing handle.
		c.lock.Unlock()
		handle.Dispose()
		return
	}
	c.handle = handle
	c.state = StateWidgetActive
	c.lock.Unlock()

	for kind := range wireNames {
		kind := kind
		handle.AddEventListener(kind, func(event Event) {
			c.dispatch(generation, event)
		})
	}
	log.Info().Str("room", options.RoomName).Msg("widget constructed")
}

// dispatch is the single internal handler behind every registered
// listener. Lobby events are informational passthroughs: the external
// service owns admission, no local decision is made.
func (c *Controller) dispatch(generation int, event Event) {
	c.lock.Lock()
	if generation != c.generation {
		c.lock.Unlock()
		return
	}

	switch event.Kind {
	case EventJoined, EventKnocking, EventAdmissionGranted, EventAdmissionDenied:
		c.lock.Unlock()
		log.Info().Str("event", event.Kind.String()).Fields(event.Payload).Msg("widget event")

	case EventConnectionFailed:
		// The handle is left for explicit teardown; re-entry into start
		// is blocked because the state leaves ScriptLoaded.
		c.state = StateError
		c.lastErr = apperrors.ErrConnectionFailed
		c.lock.Unlock()
		log.Error().Fields(event.Payload).Msg("widget connection failed")

	case EventReadyToClose:
		onLeave := c.onLeave
		c.lock.Unlock()
		c.Unmount()
		onLeave()

	default:
		c.lock.Unlock()
	}
}
