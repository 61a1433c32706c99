package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

func TestResolveWorker_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "worker")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	got, err := ResolveWorker(discardLogger(), bin)
	require.NoError(t, err)
	require.Equal(t, bin, got)
}

func TestResolveWorker_SearchesPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "procbridge-test-worker")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	t.Setenv("PATH", dir)

	got, err := ResolveWorker(discardLogger(), "procbridge-test-worker")
	require.NoError(t, err)
	require.Equal(t, bin, got)
}

func TestResolveWorker_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveWorker(discardLogger(), "no-such-worker")

	var notFound *errors.WorkerNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, []string{"$PATH"}, notFound.SearchedPaths)

	_, err = ResolveWorker(discardLogger(), filepath.Join(t.TempDir(), "absent"))
	require.ErrorAs(t, err, &notFound)
}

func TestResolveWorker_NotExecutable(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "worker.txt")
	require.NoError(t, os.WriteFile(bin, []byte("data"), 0o644))

	_, err := ResolveWorker(discardLogger(), bin)

	var notFound *errors.WorkerNotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = ResolveWorker(discardLogger(), t.TempDir())
	require.ErrorAs(t, err, &notFound)
}
