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

// mockTransport mocks sync.Transport for the engine tests.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockTransport) Upsert(ctx context.Context, req sync.UpsertRequest) (*sync.UpsertResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.UpsertResponse), args.Error(1)
}

func (m *mockTransport) Upload(ctx context.Context, req sync.UploadRequest) (*sync.UploadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.UploadResponse), args.Error(1)
}

func (m *mockTransport) Changes(ctx context.Context, req sync.ChangesRequest) (*sync.ChangesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ChangesResponse), args.Error(1)
}

type pushFixture struct {
	storage   *SQLiteStorage
	queue     *MutationQueue
	transport *mockTransport
	pusher    *Pusher
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()

	storage := newTestStorage(t)
	queue := NewMutationQueue(storage.DB(), slog.Default())
	transport := new(mockTransport)

	return &pushFixture{
		storage:   storage,
		queue:     queue,
		transport: transport,
		pusher:    NewPusher(storage, queue, transport, slog.Default()),
	}
}

func (f *pushFixture) enqueueRecord(t *testing.T, clientID string) {
	t.Helper()

	rec := testRecord(clientID)
	require.NoError(t, f.storage.SaveLocal(rec))
	_, err := f.queue.Enqueue(rec.Table, sync.OpCreate, clientID, rec.Payload)
	require.NoError(t, err)
}

func TestPusher_SuccessDrainsQueue(t *testing.T) {
	f := newPushFixture(t)
	f.enqueueRecord(t, "wo-1")
	f.enqueueRecord(t, "wo-2")

	f.transport.On("Upsert", mock.Anything, mock.Anything).
		Return(&sync.UpsertResponse{Status: "Ok", ServerID: "srv-1", Created: true}, nil)

	result := f.pusher.Push(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Pushed)
	assert.Empty(t, result.Errors)

	count, err := f.queue.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := f.storage.GetRecord(record.TableWorkOrders, "wo-1")
	require.NoError(t, err)
	assert.Equal(t, record.StatusSynced, got.Status)
	assert.Equal(t, "srv-1", got.ServerID)
}

func TestPusher_FailureKeepsEntryAndContinues(t *testing.T) {
	f := newPushFixture(t)
	f.enqueueRecord(t, "wo-bad")
	f.enqueueRecord(t, "wo-good")

	f.transport.On("Upsert", mock.Anything, mock.MatchedBy(func(req sync.UpsertRequest) bool {
		return req.ClientID == "wo-bad"
	})).Return(nil, errors.New("boom"))
	f.transport.On("Upsert", mock.Anything, mock.MatchedBy(func(req sync.UpsertRequest) bool {
		return req.ClientID == "wo-good"
	})).Return(&sync.UpsertResponse{Status: "Ok", ServerID: "srv-2"}, nil)

	result := f.pusher.Push(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Pushed, "failure must not block later entries")
	assert.Len(t, result.Errors, 1)

	entries, err := f.queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wo-bad", entries[0].ClientID)
	assert.Equal(t, 1, entries[0].RetryCount)
}

func TestPusher_RetryCeilingSkipsEntry(t *testing.T) {
	f := newPushFixture(t)
	f.enqueueRecord(t, "wo-poison")

	entries, err := f.queue.ListPending()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	for i := 0; i < MaxPushRetries; i++ {
		require.NoError(t, f.queue.IncrementRetry(entries[0].ID))
	}

	result := f.pusher.Push(context.Background())

	assert.True(t, result.Success, "a skipped entry does not fail the drain")
	assert.Zero(t, result.Pushed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "exceeded")

	// No transport call was attempted and the entry is still queued.
	f.transport.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	count, err := f.queue.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPusher_Idempotency_ResendsSameClientID(t *testing.T) {
	f := newPushFixture(t)
	f.enqueueRecord(t, "wo-1")

	// First attempt: server applied the change but the response was lost.
	f.transport.On("Upsert", mock.Anything, mock.Anything).
		Return(nil, errors.New("network timeout")).Once()
	result := f.pusher.Push(context.Background())
	require.False(t, result.Success)

	// Retry carries the same client id so the server converges on one row.
	f.transport.On("Upsert", mock.Anything, mock.MatchedBy(func(req sync.UpsertRequest) bool {
		return req.ClientID == "wo-1"
	})).Return(&sync.UpsertResponse{Status: "Ok", ServerID: "srv-1", Created: false}, nil).Once()

	result = f.pusher.Push(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Pushed)
	f.transport.AssertExpectations(t)
}

func TestPusher_UploadEntry(t *testing.T) {
	f := newPushFixture(t)

	uploadReq := sync.UploadRequest{
		ClientID:    "att-1",
		FileName:    "pump.jpg",
		ContentType: "image/jpeg",
		Content:     []byte{0xff, 0xd8},
	}
	payload, err := json.Marshal(uploadReq)
	require.NoError(t, err)

	rec := &record.Record{
		ClientID: "att-1",
		Table:    record.TableAttachments,
		Payload:  payload,
		Status:   record.StatusPending,
	}
	require.NoError(t, f.storage.SaveLocal(rec))
	_, err = f.queue.Enqueue(record.TableAttachments, sync.OpUpload, "att-1", payload)
	require.NoError(t, err)

	f.transport.On("Upload", mock.Anything, mock.MatchedBy(func(req sync.UploadRequest) bool {
		return req.ClientID == "att-1" && req.FileName == "pump.jpg"
	})).Return(&sync.UploadResponse{Status: "Ok", StorageID: "st-1", ServerID: "srv-9"}, nil)

	result := f.pusher.Push(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Pushed)

	got, err := f.storage.GetRecord(record.TableAttachments, "att-1")
	require.NoError(t, err)
	assert.Equal(t, record.StatusSynced, got.Status)
	assert.Equal(t, "srv-9", got.ServerID)
}

func TestPusher_CancelledContextStops(t *testing.T) {
	f := newPushFixture(t)
	f.enqueueRecord(t, "wo-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.pusher.Push(ctx)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	count, err := f.queue.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "cancelled cycle leaves the queue intact")
}
