package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_NewRequestCancelsPrevious(t *testing.T) {
	tr := NewTracker()

	ctx1, tk1 := tr.Begin(context.Background(), "s")
	ctx2, tk2 := tr.Begin(context.Background(), "s")

	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())
	assert.False(t, tr.Current(tk1))
	assert.True(t, tr.Current(tk2))

	tr.End(tk1)
	assert.True(t, tr.Current(tk2), "ending a stale ticket keeps the newer one")
	assert.Equal(t, 1, tr.InFlight())

	tr.End(tk2)
	assert.Zero(t, tr.InFlight())
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}

func TestTracker_SessionsAreIndependent(t *testing.T) {
	tr := NewTracker()

	ctxA, tkA := tr.Begin(context.Background(), "a")
	_, tkB := tr.Begin(context.Background(), "b")

	assert.NoError(t, ctxA.Err())
	assert.True(t, tr.Current(tkA))
	assert.True(t, tr.Current(tkB))
	tr.End(tkA)
	tr.End(tkB)
}

func TestTracker_EmptySessionNeverSuperseded(t *testing.T) {
	tr := NewTracker()

	ctx1, tk1 := tr.Begin(context.Background(), "")
	_, tk2 := tr.Begin(context.Background(), "")

	assert.NoError(t, ctx1.Err())
	assert.True(t, tr.Current(tk1))
	assert.True(t, tr.Current(tk2))
	assert.Zero(t, tr.InFlight())
	tr.End(tk1)
	tr.End(tk2)
}
