package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The global slot is package state, so the whole lifecycle is exercised in
// one sequential test.
func TestGlobalControllerLifecycle(t *testing.T) {
	assert.False(t, IsInitialized(), "no controller installed at start")
	assert.Nil(t, GetController())

	first, _ := newTestController(t, allCaps())
	InstallGlobal(first)
	assert.True(t, IsInitialized())
	assert.Same(t, first, GetController())

	second, _ := newTestController(t, allCaps())
	InstallGlobal(second)
	assert.Same(t, first, GetController(), "repeated install must not replace the instance")

	err := SetControllerForTesting(second)
	require.Error(t, err, "install over an existing instance must be rejected")
	assert.Same(t, first, GetController())
}
