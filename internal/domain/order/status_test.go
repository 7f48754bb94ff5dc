package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_LegalEdges(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusInitiated))
	assert.True(t, StatusPending.CanTransition(StatusCanceled))
	assert.True(t, StatusInitiated.CanTransition(StatusCompleted))
	assert.True(t, StatusInitiated.CanTransition(StatusFailed))
}

func TestStatus_IllegalEdges(t *testing.T) {
	assert.False(t, StatusPending.CanTransition(StatusCompleted))
	assert.False(t, StatusInitiated.CanTransition(StatusPending))
	assert.False(t, StatusCompleted.CanTransition(StatusInitiated))
	assert.False(t, StatusCompleted.CanTransition(StatusFailed))
	assert.False(t, StatusFailed.CanTransition(StatusInitiated))
	assert.False(t, StatusCanceled.CanTransition(StatusPending))
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInitiated.Terminal())
}

func TestTransition_AppliesOnlyLegalEdges(t *testing.T) {
	o := &Order{Status: StatusPending}

	require.NoError(t, o.Transition(StatusInitiated))
	assert.Equal(t, StatusInitiated, o.Status)

	err := o.Transition(StatusInitiated)
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusInitiated, itErr.From)
	assert.Equal(t, StatusInitiated, o.Status, "status unchanged on illegal transition")

	require.NoError(t, o.Transition(StatusCompleted))
	require.Error(t, o.Transition(StatusFailed), "completed is terminal")
}
