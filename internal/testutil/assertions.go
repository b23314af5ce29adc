package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that the captured log output contains every fragment.
func AssertLogged(t *testing.T, result *HarnessResult, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.True(t,
			strings.Contains(result.LogOutput, f),
			"expected %q in log output", f,
		)
	}
}

// AssertArrayDims checks that the run produced array name with the given dims.
func AssertArrayDims(t *testing.T, result *HarnessResult, name string, dims ...int) {
	t.Helper()
	require.NotNil(t, result.Result, "run produced no result")
	arr, ok := result.Result.Data.Get(name)
	require.True(t, ok, "array %q not found in %v", name, result.Result.Data.Names())
	require.Equal(t, dims, arr.Dims(), "dims of %q", name)
}
