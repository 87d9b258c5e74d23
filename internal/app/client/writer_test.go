package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

type writerFixture struct {
	storage   *SQLiteStorage
	queue     *MutationQueue
	transport *mockTransport
	checker   *fakeChecker
	writer    *LocalWriter
}

func newWriterFixture(t *testing.T, online bool) *writerFixture {
	t.Helper()

	storage := newTestStorage(t)
	log := slog.Default()
	queue := NewMutationQueue(storage.DB(), log)
	transport := new(mockTransport)
	checker := &fakeChecker{healthy: online}
	connectivity := NewConnectivityMonitor(checker, log)
	if online {
		connectivity.ProbeNow(context.Background())
	}

	return &writerFixture{
		storage:   storage,
		queue:     queue,
		transport: transport,
		checker:   checker,
		writer:    NewLocalWriter(storage, queue, transport, connectivity, log),
	}
}

func TestLocalWriter_CreateOfflineQueues(t *testing.T) {
	f := newWriterFixture(t, false)

	clientID, err := f.writer.Create(context.Background(),
		record.TableWorkOrders, json.RawMessage(`{"title":"fix fence"}`))
	require.NoError(t, err)
	require.NotEmpty(t, clientID)

	got, err := f.storage.GetRecord(record.TableWorkOrders, clientID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, got.Status)

	entries, err := f.queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, clientID, entries[0].ClientID)
	assert.Equal(t, sync.OpCreate, entries[0].Operation)

	f.transport.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestLocalWriter_CreateOnlinePushesInline(t *testing.T) {
	f := newWriterFixture(t, true)

	f.transport.On("Upsert", mock.Anything, mock.Anything).
		Return(&sync.UpsertResponse{Status: "Ok", ServerID: "srv-1", Created: true}, nil)

	clientID, err := f.writer.Create(context.Background(),
		record.TableWorkOrders, json.RawMessage(`{"title":"fix fence"}`))
	require.NoError(t, err)

	got, err := f.storage.GetRecord(record.TableWorkOrders, clientID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusSynced, got.Status)
	assert.Equal(t, "srv-1", got.ServerID)

	count, err := f.queue.Count()
	require.NoError(t, err)
	assert.Zero(t, count, "confirmed entry leaves the queue")
}

func TestLocalWriter_InlineFailureLeavesEntryQueued(t *testing.T) {
	f := newWriterFixture(t, true)

	f.transport.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	clientID, err := f.writer.Create(context.Background(),
		record.TableWorkOrders, json.RawMessage(`{"title":"fix fence"}`))
	require.NoError(t, err, "inline push failure is not a write failure")

	got, err := f.storage.GetRecord(record.TableWorkOrders, clientID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, got.Status)

	count, err := f.queue.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLocalWriter_InlineConfirmKeepsLaterEdits(t *testing.T) {
	f := newWriterFixture(t, true)

	rec := testRecord("wo-1")
	require.NoError(t, f.storage.SaveLocal(rec))

	firstID, err := f.queue.Enqueue(record.TableWorkOrders, sync.OpUpdate, "wo-1", []byte(`{"title":"v1"}`))
	require.NoError(t, err)
	secondID, err := f.queue.Enqueue(record.TableWorkOrders, sync.OpUpdate, "wo-1", []byte(`{"title":"v2"}`))
	require.NoError(t, err)

	f.transport.On("Upsert", mock.Anything, mock.Anything).
		Return(&sync.UpsertResponse{Status: "Ok", ServerID: "srv-1"}, nil)

	// Confirmation of the first write must not consume the second edit's
	// entry, which still awaits its own push.
	require.NoError(t, f.writer.tryInline(context.Background(),
		record.TableWorkOrders, sync.OpUpdate, "wo-1", []byte(`{"title":"v1"}`), firstID))

	entries, err := f.queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, secondID, entries[0].ID)
	assert.JSONEq(t, `{"title":"v2"}`, string(entries[0].Payload))
}

func TestLocalWriter_CreateRejectsInvalidInput(t *testing.T) {
	f := newWriterFixture(t, false)

	_, err := f.writer.Create(context.Background(), "invoices", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, record.ErrUnknownTable)

	_, err = f.writer.Create(context.Background(), record.TableWorkOrders, json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, record.ErrInvalidPayload)
}

func TestLocalWriter_UpdateMarksPendingAgain(t *testing.T) {
	f := newWriterFixture(t, false)

	clientID, err := f.writer.Create(context.Background(),
		record.TableWorkOrders, json.RawMessage(`{"title":"v1"}`))
	require.NoError(t, err)
	require.NoError(t, f.storage.MarkSynced(record.TableWorkOrders, clientID, "srv-1"))

	err = f.writer.Update(context.Background(),
		record.TableWorkOrders, clientID, json.RawMessage(`{"title":"v2"}`))
	require.NoError(t, err)

	got, err := f.storage.GetRecord(record.TableWorkOrders, clientID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, got.Status)
	assert.Equal(t, "srv-1", got.ServerID, "server id survives the new edit")
	assert.JSONEq(t, `{"title":"v2"}`, string(got.Payload))
}

func TestLocalWriter_UpdateMissingRecord(t *testing.T) {
	f := newWriterFixture(t, false)

	err := f.writer.Update(context.Background(),
		record.TableWorkOrders, "ghost", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestLocalWriter_AttachSnapshotsContent(t *testing.T) {
	f := newWriterFixture(t, false)

	content := []byte{0x01, 0x02, 0x03}
	clientID, err := f.writer.Attach(context.Background(), "site.jpg", "image/jpeg", content)
	require.NoError(t, err)

	entries, err := f.queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sync.OpUpload, entries[0].Operation)

	var req sync.UploadRequest
	require.NoError(t, json.Unmarshal(entries[0].Payload, &req))
	assert.Equal(t, clientID, req.ClientID)
	assert.Equal(t, "site.jpg", req.FileName)
	assert.Equal(t, content, req.Content, "queue payload carries the captured bytes")
}
