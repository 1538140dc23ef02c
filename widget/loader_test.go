package widget_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/datafab/collab-meet/internal/errors"
	"github.com/datafab/collab-meet/widget"
	"github.com/datafab/collab-meet/widget/widgetfakes"
)

const testScriptURL = "https://meet.example.com/external_api.js"

func TestLoader_Ensure(t *testing.T) {
	t.Run("requires injector and url", func(t *testing.T) {
		_, err := widget.NewLoader(nil, testScriptURL)
		require.Error(t, err)
		_, err = widget.NewLoader(widgetfakes.NewFakeInjector(), "")
		require.Error(t, err)
	})

	t.Run("concurrent ensures share one script tag", func(t *testing.T) {
		injector := widgetfakes.NewFakeInjector()
		loader, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)

		var completions int
		loader.Ensure(func(err error) { require.NoError(t, err); completions++ })
		loader.Ensure(func(err error) { require.NoError(t, err); completions++ })

		require.Equal(t, 1, injector.ScriptCount())
		require.Equal(t, widget.LoadLoading, loader.State())

		injector.FireLoad()
		require.Equal(t, 2, completions)
		require.Equal(t, widget.LoadLoaded, loader.State())
	})

	t.Run("ensure after load completes immediately", func(t *testing.T) {
		injector := widgetfakes.NewFakeInjector()
		loader, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)

		loader.Ensure(func(error) {})
		injector.FireLoad()

		var done bool
		loader.Ensure(func(err error) { require.NoError(t, err); done = true })
		require.True(t, done)
		require.Equal(t, 1, injector.ScriptCount())
	})

	t.Run("load failure is terminal with no retry", func(t *testing.T) {
		injector := widgetfakes.NewFakeInjector()
		loader, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)

		var firstErr error
		loader.Ensure(func(err error) { firstErr = err })
		injector.FireError(errors.New("404"))

		require.ErrorIs(t, firstErr, apperrors.ErrScriptLoadFailed)
		require.Equal(t, widget.LoadFailed, loader.State())

		var secondErr error
		loader.Ensure(func(err error) { secondErr = err })
		require.ErrorIs(t, secondErr, apperrors.ErrScriptLoadFailed)
		require.Equal(t, 1, injector.ScriptCount()) // no second injection
	})

	t.Run("release resets for a fresh mount", func(t *testing.T) {
		injector := widgetfakes.NewFakeInjector()
		loader, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)

		loader.Ensure(func(error) {})
		injector.FireError(errors.New("404"))
		loader.Release()

		require.Equal(t, widget.LoadNotLoaded, loader.State())
		require.Zero(t, injector.ScriptCount())

		var done bool
		loader.Ensure(func(err error) { require.NoError(t, err); done = true })
		injector.FireLoad()
		require.True(t, done)
	})

	t.Run("a leftover tag is treated as loaded", func(t *testing.T) {
		injector := widgetfakes.NewFakeInjector()
		first, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)
		first.Ensure(func(error) {})
		injector.FireLoad()

		second, err := widget.NewLoader(injector, testScriptURL)
		require.NoError(t, err)
		var done bool
		second.Ensure(func(err error) { require.NoError(t, err); done = true })
		require.True(t, done)
		require.Equal(t, 1, injector.ScriptCount())
	})
}
