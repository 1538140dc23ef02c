package widget_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/datafab/collab-meet/internal/errors"
	"github.com/datafab/collab-meet/widget"
	"github.com/datafab/collab-meet/widget/widgetfakes"
)

const (
	testMeetDomain = "meet.example.com"
	testRoomID     = "k3f9a-x07qp"
)

type controllerFixture struct {
	injector   *widgetfakes.FakeInjector
	factory    *widgetfakes.FakeFactory
	loader     *widget.Loader
	controller *widget.Controller
	leaveCount int
}

func setupController(t *testing.T) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		injector: widgetfakes.NewFakeInjector(),
		factory:  widgetfakes.NewFakeFactory(),
	}

	loader, err := widget.NewLoader(f.injector, testScriptURL)
	require.NoError(t, err)
	f.loader = loader

	controller, err := widget.NewController(loader, f.factory, testMeetDomain, "",
		widget.WithOnLeave(func() { f.leaveCount++ }),
	)
	require.NoError(t, err)
	f.controller = controller
	return f
}

func (f *controllerFixture) mountAndStart(t *testing.T) *widgetfakes.FakeHandle {
	t.Helper()

	f.controller.Mount(testRoomID)
	f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe", Email: "john@example.com"})
	f.injector.FireLoad()

	handles := f.factory.Handles()
	require.Len(t, handles, 1)
	return handles[0]
}

func TestController_Mount(t *testing.T) {
	t.Run("constructs once script and user have both arrived", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)

		require.Equal(t, widget.StateWidgetActive, f.controller.State())
		require.Equal(t, testMeetDomain, handle.Domain)
		require.Equal(t, testRoomID, handle.Options.RoomName)
		require.Equal(t, "John Doe", handle.Options.UserInfo.DisplayName)
		require.Len(t, handle.ListenerKinds(), 6)
	})

	t.Run("signals arriving in the opposite order", func(t *testing.T) {
		f := setupController(t)
		f.controller.Mount(testRoomID)
		f.injector.FireLoad() // script first
		require.Equal(t, widget.StateScriptLoaded, f.controller.State())
		require.Empty(t, f.factory.Handles())

		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		require.Equal(t, widget.StateWidgetActive, f.controller.State())
		require.Len(t, f.factory.Handles(), 1)
	})

	t.Run("room prefix is prepended to the room name", func(t *testing.T) {
		f := setupController(t)
		loader, err := widget.NewLoader(f.injector, testScriptURL)
		require.NoError(t, err)
		controller, err := widget.NewController(loader, f.factory, testMeetDomain, "collab-")
		require.NoError(t, err)

		controller.Mount(testRoomID)
		controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		f.injector.FireLoad()

		handles := f.factory.Handles()
		require.Len(t, handles, 1)
		require.Equal(t, "collab-"+testRoomID, handles[0].Options.RoomName)
	})

	t.Run("mounting twice injects exactly one script tag", func(t *testing.T) {
		f := setupController(t)
		f.controller.Mount(testRoomID)
		f.controller.Mount(testRoomID)
		require.Equal(t, 1, f.injector.ScriptCount())
	})

	t.Run("mount while active never constructs a second handle", func(t *testing.T) {
		f := setupController(t)
		f.mountAndStart(t)

		f.controller.Mount(testRoomID)
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		require.Len(t, f.factory.Handles(), 1)
	})
}

func TestController_StaleCallbacks(t *testing.T) {
	t.Run("load completing after unmount constructs nothing", func(t *testing.T) {
		f := setupController(t)
		f.controller.Mount(testRoomID)
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		f.controller.Unmount()

		f.injector.FireLoad()

		require.Empty(t, f.factory.Handles())
		require.Equal(t, widget.StateDisposed, f.controller.State())
	})

	t.Run("events from a previous generation are ignored", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)
		f.controller.Unmount()

		handle.Emit(widget.Event{Kind: widget.EventConnectionFailed})
		require.Equal(t, widget.StateDisposed, f.controller.State())
		require.NoError(t, f.controller.Err())
	})
}

func TestController_Failures(t *testing.T) {
	t.Run("script error surfaces without a handle", func(t *testing.T) {
		f := setupController(t)
		f.controller.Mount(testRoomID)
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		f.injector.FireError(errors.New("backend unreachable"))

		require.Equal(t, widget.StateError, f.controller.State())
		require.ErrorIs(t, f.controller.Err(), apperrors.ErrScriptLoadFailed)
		require.Empty(t, f.factory.Handles())
	})

	t.Run("construction failure moves to error", func(t *testing.T) {
		f := setupController(t)
		f.factory.FailNew = true

		f.controller.Mount(testRoomID)
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		f.injector.FireLoad()

		require.Equal(t, widget.StateError, f.controller.State())
		require.ErrorIs(t, f.controller.Err(), apperrors.ErrWidgetUnavailable)
	})

	t.Run("connection failure keeps the handle for explicit teardown", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)

		handle.Emit(widget.Event{Kind: widget.EventConnectionFailed})

		require.Equal(t, widget.StateError, f.controller.State())
		require.ErrorIs(t, f.controller.Err(), apperrors.ErrConnectionFailed)
		require.True(t, f.controller.Active())
		require.Zero(t, handle.DisposeCount())

		// Recovery is remount only; the failed lifecycle cannot restart.
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		require.Len(t, f.factory.Handles(), 1)
	})
}

func TestController_Teardown(t *testing.T) {
	t.Run("unmount disposes the handle and releases the script", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)

		f.controller.Unmount()

		require.Equal(t, 1, handle.DisposeCount())
		require.Zero(t, f.injector.ScriptCount())
		require.False(t, f.controller.Active())
	})

	t.Run("unmount is idempotent", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)

		f.controller.Unmount()
		f.controller.Unmount()
		require.Equal(t, 1, handle.DisposeCount())
	})

	t.Run("unmount with no handle is safe", func(t *testing.T) {
		f := setupController(t)
		f.controller.Unmount()
		require.Equal(t, widget.StateDisposed, f.controller.State())
	})

	t.Run("readyToClose leaves and disposes", func(t *testing.T) {
		f := setupController(t)
		handle := f.mountAndStart(t)

		handle.Emit(widget.Event{Kind: widget.EventReadyToClose})

		require.Equal(t, 1, f.leaveCount)
		require.Equal(t, 1, handle.DisposeCount())
		require.Equal(t, widget.StateDisposed, f.controller.State())
	})

	t.Run("remount after unmount starts a fresh lifecycle", func(t *testing.T) {
		f := setupController(t)
		f.mountAndStart(t)
		f.controller.Unmount()

		f.controller.Mount("fresh-room1")
		f.controller.SetUser(widget.UserInfo{DisplayName: "John Doe"})
		f.injector.FireLoad()

		handles := f.factory.Handles()
		require.Len(t, handles, 2)
		require.Equal(t, "fresh-room1", handles[1].Options.RoomName)
		require.Equal(t, widget.StateWidgetActive, f.controller.State())
	})
}

func TestBuildOptions(t *testing.T) {
	options := widget.BuildOptions("", testRoomID, widget.UserInfo{DisplayName: "Jane", Email: "jane@example.com"})

	t.Run("policy defaults", func(t *testing.T) {
		require.Equal(t, true, options.Config["startWithAudioMuted"])
		require.Equal(t, false, options.Config["startWithVideoMuted"])
		require.Equal(t, true, options.Config["requireDisplayName"])
		lobby, ok := options.Config["lobby"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, true, lobby["enabled"])
		require.Equal(t, true, lobby["autoKnock"])
	})

	t.Run("identity merged in", func(t *testing.T) {
		require.Equal(t, "Jane", options.UserInfo.DisplayName)
		require.Equal(t, "jane@example.com", options.UserInfo.Email)
	})
}
