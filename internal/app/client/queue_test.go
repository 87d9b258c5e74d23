package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

func newTestQueue(t *testing.T) *MutationQueue {
	t.Helper()
	return NewMutationQueue(newTestStorage(t).DB(), slog.Default())
}

func mustEnqueue(t *testing.T, queue *MutationQueue, table string, op sync.Operation, clientID string) int64 {
	t.Helper()
	id, err := queue.Enqueue(table, op, clientID, json.RawMessage(`{}`))
	require.NoError(t, err)
	return id
}

func TestMutationQueue_EnqueueAndList(t *testing.T) {
	queue := newTestQueue(t)

	firstID := mustEnqueue(t, queue, record.TableWorkOrders, sync.OpCreate, "wo-1")
	secondID := mustEnqueue(t, queue, record.TableFieldResponses, sync.OpUpdate, "fr-1")
	assert.Greater(t, secondID, firstID, "ids grow with enqueue order")

	entries, err := queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, firstID, entries[0].ID)
	assert.Equal(t, "wo-1", entries[0].ClientID)
	assert.Equal(t, "fr-1", entries[1].ClientID)
	assert.Zero(t, entries[0].RetryCount)
}

func TestMutationQueue_FIFOOrder(t *testing.T) {
	queue := newTestQueue(t)

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		mustEnqueue(t, queue, record.TableWorkOrders, sync.OpCreate, id)
	}

	entries, err := queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, len(ids))
	for i, entry := range entries {
		assert.Equal(t, ids[i], entry.ClientID, "queue must preserve enqueue order")
	}
}

func TestMutationQueue_EnqueueValidation(t *testing.T) {
	queue := newTestQueue(t)

	_, err := queue.Enqueue("invoices", sync.OpCreate, "x", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, record.ErrUnknownTable)

	_, err = queue.Enqueue(record.TableWorkOrders, sync.Operation("merge"), "x", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, sync.ErrUnknownOperation)

	count, err := queue.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMutationQueue_RemoveIsIdempotent(t *testing.T) {
	queue := newTestQueue(t)

	id := mustEnqueue(t, queue, record.TableWorkOrders, sync.OpCreate, "wo-1")

	require.NoError(t, queue.Remove(id))
	require.NoError(t, queue.Remove(id))
	require.NoError(t, queue.Remove(9999))

	count, err := queue.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMutationQueue_IncrementRetry(t *testing.T) {
	queue := newTestQueue(t)

	id := mustEnqueue(t, queue, record.TableWorkOrders, sync.OpCreate, "wo-1")

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.IncrementRetry(id))
	}

	entries, err := queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1, "retries never drop the entry")
	assert.Equal(t, 3, entries[0].RetryCount)
}

func TestMutationQueue_Clear(t *testing.T) {
	queue := newTestQueue(t)

	mustEnqueue(t, queue, record.TableWorkOrders, sync.OpCreate, "wo-1")
	require.NoError(t, queue.Clear())

	count, err := queue.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
