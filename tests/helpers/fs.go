package helpers

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DirEntries returns the names of the entries inside the directory
// provided, failing the test if it cannot be read.
func DirEntries(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

// AssertDirEventuallyEmpty waits for the directory provided to become empty.
// Temporary resources are released after the response has been written, so
// a client can observe the response slightly before cleanup completes.
func AssertDirEventuallyEmpty(t *testing.T, dir string) {
	assert.Eventually(t, func() bool {
		return len(DirEntries(t, dir)) == 0
	}, 2*time.Second, 20*time.Millisecond, "expected %s to be empty, found %v", dir, DirEntries(t, dir))
}
