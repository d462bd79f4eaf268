package websocket

import (
	"testing"

	"relay-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientSendAfterForcedClose(t *testing.T) {
	hub := NewHub(observability.NewMetrics("wstest"), zap.NewNop())
	client := NewClient("alice@example.com", hub, nil, nil, 4, zap.NewNop())

	// The hub closes the send queue when it force-unregisters a slow
	// client. The read pump may still be dispatching a frame at that
	// moment, so error pushes afterwards must be dropped, not panic.
	client.closeSend()

	require.NotPanics(t, func() {
		client.sendError("append rejected")
	})
	require.NotPanics(t, func() {
		client.sendConnectionEstablished()
	})

	assert.False(t, client.trySend([]byte(`{"type":"ping"}`)))
}

func TestClientCloseSendIsIdempotent(t *testing.T) {
	hub := NewHub(observability.NewMetrics("wstest"), zap.NewNop())
	client := NewClient("alice@example.com", hub, nil, nil, 4, zap.NewNop())

	// Shutdown and unregister can both reach the same client
	require.NotPanics(t, func() {
		client.closeSend()
		client.closeSend()
	})
}

func TestClientTrySendRespectsQueueCapacity(t *testing.T) {
	hub := NewHub(observability.NewMetrics("wstest"), zap.NewNop())
	client := NewClient("alice@example.com", hub, nil, nil, 2, zap.NewNop())

	assert.True(t, client.trySend([]byte("one")))
	assert.True(t, client.trySend([]byte("two")))
	// full queue drops instead of blocking the hub loop
	assert.False(t, client.trySend([]byte("three")))
}
