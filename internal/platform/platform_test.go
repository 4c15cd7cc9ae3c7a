package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers by command name.
type fakeRunner struct {
	calls   []call
	answers map[string]func(args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if a, ok := f.answers[name]; ok {
		return a(args)
	}
	return nil, fmt.Errorf("run %s: %w", name, exec.ErrNotFound)
}

func answer(out string, err error) func([]string) ([]byte, error) {
	return func([]string) ([]byte, error) { return []byte(out), err }
}

func TestForOS(t *testing.T) {
	assert.Equal(t, "windows", ForOS("windows", nil).Name())
	assert.Equal(t, "darwin", ForOS("darwin", nil).Name())
	assert.Equal(t, "linux", ForOS("linux", nil).Name())
	assert.Equal(t, "freebsd", ForOS("freebsd", nil).Name())
	assert.NotNil(t, Current())
}

func TestExecutableName(t *testing.T) {
	assert.Equal(t, "backend.exe", ForOS("windows", nil).ExecutableName("backend"))
	assert.Equal(t, "backend.EXE", ForOS("windows", nil).ExecutableName("backend.EXE"))
	assert.Equal(t, "backend", ForOS("linux", nil).ExecutableName("backend"))
	assert.Equal(t, "backend", ForOS("darwin", nil).ExecutableName("backend"))
}

func TestGracefulStop(t *testing.T) {
	assert.False(t, ForOS("windows", nil).GracefulStop())
	assert.True(t, ForOS("linux", nil).GracefulStop())
	assert.True(t, ForOS("darwin", nil).GracefulStop())
}

func TestLinuxConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("zenity yes", func(t *testing.T) {
		r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){"zenity": answer("", nil)}}
		ok, err := ForOS("linux", r).Confirm(ctx, "Title", "Install?")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"--question", "--title", "Title", "--text", "Install?"}, r.calls[0].args)
	})

	t.Run("zenity no", func(t *testing.T) {
		r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){
			"zenity": answer("", &ExitError{Name: "zenity", Code: 1}),
		}}
		ok, err := ForOS("linux", r).Confirm(ctx, "T", "M")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Len(t, r.calls, 1)
	})

	t.Run("falls back to kdialog", func(t *testing.T) {
		r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){"kdialog": answer("", nil)}}
		ok, err := ForOS("linux", r).Confirm(ctx, "T", "M")
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, r.calls, 2)
		assert.Equal(t, "kdialog", r.calls[1].name)
	})

	t.Run("no utility", func(t *testing.T) {
		ok, err := ForOS("linux", &fakeRunner{}).Confirm(ctx, "T", "M")
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrNoDialog)
	})
}

func TestDarwinConfirm(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){
		"osascript": answer("button returned:Yes\n", nil),
	}}
	ok, err := ForOS("darwin", r).Confirm(ctx, "Glosaurus", `Install "Ollama"?`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, r.calls[0].args[1], `Install \"Ollama\"?`)

	r.answers["osascript"] = answer("", &ExitError{Name: "osascript", Code: 1})
	ok, err = ForOS("darwin", r).Confirm(ctx, "T", "M")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowsConfirm(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){
		"powershell": answer("Yes\r\n", nil),
	}}
	ok, err := ForOS("windows", r).Confirm(ctx, "T", "it's fine")
	require.NoError(t, err)
	assert.True(t, ok)
	script := r.calls[0].args[len(r.calls[0].args)-1]
	assert.True(t, strings.Contains(script, "'it''s fine'"), script)

	r.answers["powershell"] = answer("No\r\n", nil)
	ok, err = ForOS("windows", r).Confirm(ctx, "T", "M")
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	r.answers["powershell"] = answer("", boom)
	_, err = ForOS("windows", r).Confirm(ctx, "T", "M")
	assert.ErrorIs(t, err, boom)
}

func TestDarwinRunInstaller(t *testing.T) {
	r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){
		"unzip": answer("", nil),
		"open":  answer("", nil),
	}}
	require.NoError(t, ForOS("darwin", r).RunInstaller(context.Background(), "/tmp/x/Ollama-darwin.zip"))
	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"-o", "-q", "/tmp/x/Ollama-darwin.zip", "-d", "/tmp/x"}, r.calls[0].args)
	assert.Equal(t, []string{"/tmp/x/Ollama.app"}, r.calls[1].args)
}

func TestLinuxRunInstallerError(t *testing.T) {
	r := &fakeRunner{answers: map[string]func([]string) ([]byte, error){
		"sh": answer("", &ExitError{Name: "sh", Code: 2}),
	}}
	err := ForOS("linux", r).RunInstaller(context.Background(), "/tmp/install.sh")
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.Code)
}

func TestInstallers(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		inst := ForOS(goos, nil).Installer()
		assert.True(t, strings.HasPrefix(inst.URL, "https://"), goos)
		assert.NotEmpty(t, inst.FileName, goos)
		assert.NotEmpty(t, ForOS(goos, nil).RuntimeCandidates(), goos)
	}
}

func TestExecRunner(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
