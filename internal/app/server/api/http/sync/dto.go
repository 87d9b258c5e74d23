package sync

import (
	domain "fieldsync/internal/domain/sync"
)

// Input/output wrappers for the sync endpoints. The wire shapes themselves
// live in the domain package and are shared with the client transport.

type upsertInput struct {
	Body domain.UpsertRequest
}

type upsertOutput struct {
	Body domain.UpsertResponse
}

type changesInput struct {
	Body domain.ChangesRequest
}

type changesOutput struct {
	Body domain.ChangesResponse
}

type uploadInput struct {
	Body domain.UploadRequest
}

type uploadOutput struct {
	Body domain.UploadResponse
}

type statusInput struct{}

type statusOutput struct {
	Body domain.GetStatusResponse
}
