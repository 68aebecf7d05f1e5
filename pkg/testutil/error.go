package testutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs verifies that err wraps target, either through errors.Is or
// as the pkg/errors cause.
func AssertErrorIs(t *testing.T, err error, target error) {
	require.Error(t, err)
	if errors.Is(err, target) {
		return
	}
	assert.Equal(t, target, errors.Cause(err), "unexpected error: %v", err)
}
