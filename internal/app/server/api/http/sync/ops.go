package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) upsertOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-upsert-record",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/records",
		Summary:     "Upsert one record",
		Description: "Applies one client mutation, idempotent by client id",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-changes",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/changes",
		Summary:     "List changed records",
		Description: "Returns records of one table changed since the given watermark",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-upload-attachment",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/attachments",
		Summary:     "Upload one attachment",
		Description: "Stores one binary attachment, idempotent by client id",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Get sync status",
		Description: "Returns the server's view of the caller's synced data",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
