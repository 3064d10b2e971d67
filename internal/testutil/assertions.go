package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// taskLogged reports whether some log line carries both the given message
// and an exact task=<addr> attribute. Token matching avoids false positives
// from variant addresses sharing a prefix, e.g. run.sweep vs run.sweep[0].
func taskLogged(result *HarnessResult, message, addr string) bool {
	token := "task=" + addr
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if !strings.Contains(line, message) {
			continue
		}
		for _, field := range strings.Fields(line) {
			if field == token {
				return true
			}
		}
	}
	return false
}

// AssertTaskComputed checks the logs to confirm that a task executed its
// handler rather than loading a memoized result.
func AssertTaskComputed(t *testing.T, result *HarnessResult, addr string) {
	t.Helper()
	require.True(t, taskLogged(result, "Computing task", addr),
		"expected task '%s' to compute", addr)
}

// AssertTaskLoaded checks the logs to confirm that a task loaded a
// memoized result instead of computing.
func AssertTaskLoaded(t *testing.T, result *HarnessResult, addr string) {
	t.Helper()
	require.True(t, taskLogged(result, "Loading memoized results", addr),
		"expected task '%s' to load from its store", addr)
}

// AssertTaskFinished checks the logs to confirm that a task reached the
// finished phase, whether by computing or loading.
func AssertTaskFinished(t *testing.T, result *HarnessResult, addr string) {
	t.Helper()
	require.True(t, taskLogged(result, "Task finished", addr),
		"expected task '%s' to finish", addr)
}

// AssertTaskSkipped checks the logs to confirm that a task was skipped
// because an upstream dependency failed.
func AssertTaskSkipped(t *testing.T, result *HarnessResult, addr string) {
	t.Helper()
	require.True(t, taskLogged(result, "Skipping dependent task", addr),
		"expected task '%s' to be skipped", addr)
}
