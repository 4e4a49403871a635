package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopanpm/gopan/internal/app"
	"github.com/gopanpm/gopan/internal/config"
	"github.com/gopanpm/gopan/internal/cpan"
)

// recordingShell records Run calls and satisfies the rest of the
// collaborator contract with empty answers.
type recordingShell struct {
	runCalls []string
}

func (r *recordingShell) Run(_ context.Context, act cpan.Action, force bool, module string) error {
	r.runCalls = append(r.runCalls, fmt.Sprintf("%s/%s/force=%v", act, module, force))
	return nil
}

func (r *recordingShell) Expand(_ context.Context, name string) (*cpan.Module, error) {
	return &cpan.Module{Name: name}, nil
}

func (r *recordingShell) Modules(context.Context) ([]*cpan.Module, error) { return nil, nil }

func (r *recordingShell) Author(_ context.Context, id string) (*cpan.Author, error) {
	return &cpan.Author{ID: id}, nil
}

func (r *recordingShell) Changes(context.Context, *cpan.Module) (string, error) { return "", nil }

func (r *recordingShell) Autobundle(context.Context) (string, error) { return "/tmp/bundle.pm", nil }

func (r *recordingShell) Recompile(context.Context) error { return nil }

func newTestSession() (*Session, *recordingShell, *bytes.Buffer) {
	collab := &recordingShell{}
	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	a := app.New(out, logger, &config.Config{}, collab)
	return New(a, out), collab, out
}

func TestDispatch_BuildCommands(t *testing.T) {
	t.Parallel()

	s, collab, _ := newTestSession()
	ctx := context.Background()

	for _, line := range []string{
		"install Foo::Bar",
		"test Baz",
		"force install Foo::Bar",
		"clean Foo::Bar Baz",
	} {
		quit, err := s.dispatch(ctx, line)
		require.NoError(t, err, "line %q", line)
		require.False(t, quit)
	}

	assert.Equal(t, []string{
		"install/Foo::Bar/force=false",
		"test/Baz/force=false",
		"install/Foo::Bar/force=true",
		"clean/Foo::Bar/force=false",
		"clean/Baz/force=false",
	}, collab.runCalls)
}

func TestDispatch_ActionWithoutModules(t *testing.T) {
	t.Parallel()

	s, collab, _ := newTestSession()
	_, err := s.dispatch(context.Background(), "install")
	require.Error(t, err)
	assert.Equal(t, "Nothing to install!", err.Error())
	assert.Empty(t, collab.runCalls)
}

func TestDispatch_ForceNeedsACommand(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession()
	_, err := s.dispatch(context.Background(), "force")
	require.Error(t, err)
}

func TestDispatch_QuitAndBlankLines(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession()
	ctx := context.Background()

	for _, line := range []string{"q", "quit", "exit"} {
		quit, err := s.dispatch(ctx, line)
		require.NoError(t, err)
		require.True(t, quit, "line %q should quit", line)
	}

	quit, err := s.dispatch(ctx, "   ")
	require.NoError(t, err)
	require.False(t, quit)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSession()
	_, err := s.dispatch(context.Background(), "frobnicate Foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestDispatch_HelpListsCommands(t *testing.T) {
	t.Parallel()

	s, _, out := newTestSession()
	quit, err := s.dispatch(context.Background(), "h")
	require.NoError(t, err)
	require.False(t, quit)
	assert.Contains(t, out.String(), "install|make|test|clean")
	assert.Contains(t, out.String(), "autobundle")
}
