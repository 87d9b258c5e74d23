package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fieldsync/internal/app/server/api/http/middleware/identity"
	"fieldsync/internal/domain/record"
)

// MockRepository mocks the Repository interface.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertRecord(ctx context.Context, userID string, rec *RemoteRecord) (string, bool, error) {
	args := m.Called(ctx, userID, rec)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ListChangedSince(ctx context.Context, userID, table string, since *time.Time, afterID string, limit int) ([]*RemoteRecord, error) {
	args := m.Called(ctx, userID, table, since, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*RemoteRecord), args.Error(1)
}

func (m *MockRepository) SaveAttachment(ctx context.Context, userID string, req *UploadRequest) (string, string, error) {
	args := m.Called(ctx, userID, req)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockRepository) CountRecords(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.Default(), nil)
}

func userContext(userID string) context.Context {
	return identity.WithUserID(context.Background(), userID)
}

func TestService_Upsert_Success(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	repo.On("UpsertRecord", mock.Anything, "user-1", mock.MatchedBy(func(rec *RemoteRecord) bool {
		return rec.ClientID == "wo-1" && rec.Table == record.TableWorkOrders
	})).Return("srv-1", true, nil)

	resp, err := service.Upsert(userContext("user-1"), UpsertRequest{
		Table:     record.TableWorkOrders,
		ClientID:  "wo-1",
		Operation: OpCreate,
		Payload:   json.RawMessage(`{"title":"x"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, "Ok", resp.Status)
	assert.Equal(t, "srv-1", resp.ServerID)
	assert.True(t, resp.Created)
	assert.False(t, resp.ServerTime.IsZero())
	repo.AssertExpectations(t)
}

func TestService_Upsert_MissingIdentity(t *testing.T) {
	service := newTestService(new(MockRepository))

	_, err := service.Upsert(context.Background(), UpsertRequest{
		Table:     record.TableWorkOrders,
		ClientID:  "wo-1",
		Operation: OpCreate,
	})

	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestService_Upsert_Validation(t *testing.T) {
	service := newTestService(new(MockRepository))
	ctx := userContext("user-1")

	_, err := service.Upsert(ctx, UpsertRequest{
		Table:     record.TableWorkOrders,
		ClientID:  "wo-1",
		Operation: Operation("merge"),
	})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = service.Upsert(ctx, UpsertRequest{
		Table:     "invoices",
		ClientID:  "wo-1",
		Operation: OpCreate,
	})
	assert.ErrorIs(t, err, record.ErrUnknownTable)

	_, err = service.Upsert(ctx, UpsertRequest{
		Table:     record.TableWorkOrders,
		Operation: OpCreate,
	})
	assert.Error(t, err, "client id is required")
}

func TestService_Changes_Success(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	since := time.Now().Add(-time.Hour)
	remote := []*RemoteRecord{
		{ClientID: "wo-1", ServerID: "srv-1", Table: record.TableWorkOrders},
	}

	repo.On("ListChangedSince", mock.Anything, "user-1", record.TableWorkOrders, &since, "", 100).
		Return(remote, nil)

	resp, err := service.Changes(userContext("user-1"), ChangesRequest{
		Table: record.TableWorkOrders,
		Since: &since,
		Limit: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, "Ok", resp.Status)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "wo-1", resp.Records[0].ClientID)
	assert.False(t, resp.HasMore)
}

func TestService_Changes_LimitClamping(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	// Zero limit falls back to the batch size, oversized limits clamp to
	// the configured ceiling.
	repo.On("ListChangedSince", mock.Anything, "user-1", record.TableWorkOrders, (*time.Time)(nil), "", 500).
		Return([]*RemoteRecord{}, nil).Once()
	repo.On("ListChangedSince", mock.Anything, "user-1", record.TableWorkOrders, (*time.Time)(nil), "", 1000).
		Return([]*RemoteRecord{}, nil).Once()

	_, err := service.Changes(userContext("user-1"), ChangesRequest{Table: record.TableWorkOrders})
	require.NoError(t, err)

	_, err = service.Changes(userContext("user-1"), ChangesRequest{Table: record.TableWorkOrders, Limit: 5000})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestService_Changes_HasMore(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	remote := []*RemoteRecord{
		{ClientID: "wo-1"},
		{ClientID: "wo-2"},
	}
	repo.On("ListChangedSince", mock.Anything, "user-1", record.TableWorkOrders, (*time.Time)(nil), "", 2).
		Return(remote, nil)

	resp, err := service.Changes(userContext("user-1"), ChangesRequest{
		Table: record.TableWorkOrders,
		Limit: 2,
	})

	require.NoError(t, err)
	assert.True(t, resp.HasMore, "a full page signals more data")
}

func TestService_Changes_ForwardsPageCursor(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	since := time.Now().Add(-time.Hour)
	repo.On("ListChangedSince", mock.Anything, "user-1", record.TableWorkOrders, &since, "srv-7", 100).
		Return([]*RemoteRecord{}, nil)

	_, err := service.Changes(userContext("user-1"), ChangesRequest{
		Table:   record.TableWorkOrders,
		Since:   &since,
		AfterID: "srv-7",
		Limit:   100,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Upload_Success(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	repo.On("SaveAttachment", mock.Anything, "user-1", mock.Anything).
		Return("st-1", "srv-1", nil)

	resp, err := service.Upload(userContext("user-1"), UploadRequest{
		ClientID: "att-1",
		FileName: "pump.jpg",
		Content:  []byte{0x01},
	})

	require.NoError(t, err)
	assert.Equal(t, "st-1", resp.StorageID)
	assert.Equal(t, "srv-1", resp.ServerID)
}

func TestService_Upload_Validation(t *testing.T) {
	service := newTestService(new(MockRepository))
	ctx := userContext("user-1")

	_, err := service.Upload(ctx, UploadRequest{FileName: "x", Content: []byte{1}})
	assert.Error(t, err, "client id is required")

	_, err = service.Upload(ctx, UploadRequest{ClientID: "att-1", FileName: "x"})
	assert.Error(t, err, "content is required")
}

func TestService_Status(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)

	repo.On("CountRecords", mock.Anything, "user-1").Return(42, nil)

	resp, err := service.Status(userContext("user-1"))

	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 42, resp.Data.TotalRecords)
}

func TestService_RepositoryErrorsPropagate(t *testing.T) {
	repo := new(MockRepository)
	service := newTestService(repo)
	ctx := userContext("user-1")

	repo.On("UpsertRecord", mock.Anything, "user-1", mock.Anything).
		Return("", false, errors.New("db down"))

	_, err := service.Upsert(ctx, UpsertRequest{
		Table:     record.TableWorkOrders,
		ClientID:  "wo-1",
		Operation: OpCreate,
	})
	assert.ErrorContains(t, err, "db down")
}
