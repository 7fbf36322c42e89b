package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("hello\n"), 0o644))
	return dir
}

func TestLocalEnvExec(t *testing.T) {
	prov := NewLocalProvisioner(newSourceTree(t))

	e, err := prov.Provision(context.Background(), gateSpec())
	require.NoError(t, err)
	defer e.Close(context.Background())

	out, err := e.Exec(context.Background(), "cat marker.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "hello\n", out.Stdout)

	out, err = e.Exec(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)

	out, err = e.Exec(context.Background(), "echo oops >&2; false")
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "oops\n", out.Stderr)
}

func TestLocalEnvIsolation(t *testing.T) {
	source := newSourceTree(t)
	prov := NewLocalProvisioner(source)

	a, err := prov.Provision(context.Background(), gateSpec())
	require.NoError(t, err)
	defer a.Close(context.Background())

	b, err := prov.Provision(context.Background(), gateSpec())
	require.NoError(t, err)
	defer b.Close(context.Background())

	_, err = a.Exec(context.Background(), "echo dirty > side-effect.txt")
	require.NoError(t, err)

	out, err := b.Exec(context.Background(), "test -e side-effect.txt")
	require.NoError(t, err)
	assert.NotEqual(t, 0, out.ExitCode, "job A's mutation leaked into job B's environment")

	// The source tree itself stays untouched too.
	_, err = os.Stat(filepath.Join(source, "side-effect.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalEnvContextCancel(t *testing.T) {
	prov := NewLocalProvisioner(newSourceTree(t))

	e, err := prov.Provision(context.Background(), gateSpec())
	require.NoError(t, err)
	defer e.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = e.Exec(ctx, "sleep 5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalEnvCloseRemovesWorkdir(t *testing.T) {
	prov := NewLocalProvisioner(newSourceTree(t))

	e, err := prov.Provision(context.Background(), gateSpec())
	require.NoError(t, err)

	workdir := e.(*localEnv).workdir
	require.NoError(t, e.Close(context.Background()))

	_, err = os.Stat(workdir)
	assert.True(t, os.IsNotExist(err))
}
