package widget

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	apperrors "github.com/datafab/collab-meet/internal/errors"
)

// LoadState tracks the remote bootstrap script.
type LoadState int

const (
	LoadNotLoaded LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

// ScriptInjector is the document-level capability the loader drives: a
// single script tag per source, with async load/error completion. The
// production implementation lives in the meeting view; tests substitute
// a fake that fires completions on demand.
type ScriptInjector interface {
	HasScript(src string) bool
	InjectScript(src string, onLoad func(), onError func(err error))
	RemoveScript(src string)
}

// Loader owns the "is the script injected" flag. It is the only mutator
// of that process-wide state, which is what prevents duplicate tags when
// several views mount in quick succession. Concurrent Ensure calls share
// one in-flight load; a load failure is terminal for the attempt and is
// handed to every waiter (no automatic retry).
type Loader struct {
	injector  ScriptInjector
	scriptURL string

	lock    sync.Mutex
	state   LoadState
	loadErr error
	waiters []func(error)
}

// NewLoader creates a Loader for the conferencing bootstrap script.
func NewLoader(injector ScriptInjector, scriptURL string) (*Loader, error) {
	if injector == nil {
		return nil, errors.New("[NewLoader] script injector is required")
	}
	if scriptURL == "" {
		return nil, errors.New("[NewLoader] script URL is required")
	}
	return &Loader{injector: injector, scriptURL: scriptURL}, nil
}

// State returns the current load state.
func (l *Loader) State() LoadState {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// ScriptURL returns the bootstrap URL this loader injects.
func (l *Loader) ScriptURL() string {
	return l.scriptURL
}

// Ensure arranges for callback to run once the script is settled: now if
// already loaded or failed, later when the in-flight load completes.
// Only the first caller injects the tag.
func (l *Loader) Ensure(callback func(error)) {
	l.lock.Lock()

	switch l.state {
	case LoadLoaded:
		l.lock.Unlock()
		callback(nil)
		return
	case LoadFailed:
		err := l.loadErr
		l.lock.Unlock()
		callback(err)
		return
	case LoadLoading:
		l.waiters = append(l.waiters, callback)
		l.lock.Unlock()
		return
	}

	l.state = LoadLoading
	l.waiters = append(l.waiters, callback)
	l.lock.Unlock()

	if l.injector.HasScript(l.scriptURL) {
		// A tag from a previous mount is still attached; treat it as loaded.
		l.settle(nil)
		return
	}

	l.injector.InjectScript(l.scriptURL,
		func() { l.settle(nil) },
		func(err error) {
			l.settle(fmt.Errorf("%w: %v", apperrors.ErrScriptLoadFailed, err))
		},
	)
}

// Release removes the script tag and resets the loader so a later mount
// starts from scratch. Safe to call in any state.
func (l *Loader) Release() {
	l.lock.Lock()
	l.state = LoadNotLoaded
	l.loadErr = nil
	l.waiters = nil
	l.lock.Unlock()

	l.injector.RemoveScript(l.scriptURL)
}

func (l *Loader) settle(err error) {
	l.lock.Lock()
	if err != nil {
		l.state = LoadFailed
		l.loadErr = err
	} else {
		l.state = LoadLoaded
	}
	waiters := l.waiters
	l.waiters = nil
	l.lock.Unlock()

	for _, waiter := range waiters {
		waiter(err)
	}
}
