package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriverError(t *testing.T) {
	cause := errors.New("device timeout")
	err := fmt.Errorf("run: %w", &DriverError{Target: "dci_ChanA_temperature", Op: "get", Index: []int{1, 2}, Err: cause})

	assert.ErrorIs(t, err, ErrDriver)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get dci_ChanA_temperature at index (1, 2)")

	var de *DriverError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, []int{1, 2}, de.Index)
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, Configurationf("bad %d", 1), ErrConfiguration)
	assert.Nil(t, WrapConfiguration(nil, "ignored"))
	assert.ErrorIs(t, Unsupportedf("sliced"), ErrUnsupported)
	assert.ErrorIs(t, &ConcurrentRunError{Target: "x", Owner: "r1"}, ErrConcurrentRun)
	assert.Equal(t, "(3)", FormatIndex([]int{3}))
	assert.NotErrorIs(t, Configurationf("x"), ErrUnsupported)
}
