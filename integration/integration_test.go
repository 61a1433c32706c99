//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

var procbridgeBin string

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	dir, err := os.MkdirTemp("", "procbridge-integration")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	procbridgeBin = filepath.Join(dir, "procbridge")

	_, file, _, _ := runtime.Caller(0)
	root := filepath.Dir(filepath.Dir(file))

	build := exec.Command("go", "build", "-o", procbridgeBin, "./cmd/procbridge")
	build.Dir = root
	build.Stdout = os.Stderr
	build.Stderr = os.Stderr

	if err := build.Run(); err != nil {
		procbridgeBin = ""
	}

	return m.Run()
}

// requireBinary skips the test if the procbridge binary could not be built.
func requireBinary(t *testing.T) string {
	t.Helper()

	if procbridgeBin == "" {
		t.Skip("procbridge binary could not be built")
	}

	info, err := os.Stat(procbridgeBin)
	require.NoError(t, err)
	require.False(t, info.IsDir())

	return procbridgeBin
}
