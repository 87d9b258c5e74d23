package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	domain "fieldsync/internal/domain/sync"
)

type Handler struct {
	service    domain.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service domain.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.upsertOp(), h.upsert)
	huma.Register(api, h.changesOp(), h.changes)
	huma.Register(api, h.uploadOp(), h.upload)
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) upsert(ctx context.Context, input *upsertInput) (*upsertOutput, error) {
	resp, err := h.service.Upsert(ctx, input.Body)
	if err != nil {
		h.log.Error("upsert failed",
			"table", input.Body.Table, "client_id", input.Body.ClientID, "error", err)
		return &upsertOutput{
			Body: domain.UpsertResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &upsertOutput{Body: *resp}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	resp, err := h.service.Changes(ctx, input.Body)
	if err != nil {
		h.log.Error("changes failed", "table", input.Body.Table, "error", err)
		return &changesOutput{
			Body: domain.ChangesResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &changesOutput{Body: *resp}, nil
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	resp, err := h.service.Upload(ctx, input.Body)
	if err != nil {
		h.log.Error("upload failed", "client_id", input.Body.ClientID, "error", err)
		return &uploadOutput{
			Body: domain.UploadResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &uploadOutput{Body: *resp}, nil
}

func (h *Handler) status(ctx context.Context, _ *statusInput) (*statusOutput, error) {
	resp, err := h.service.Status(ctx)
	if err != nil {
		h.log.Error("status failed", "error", err)
		return &statusOutput{
			Body: domain.GetStatusResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &statusOutput{Body: *resp}, nil
}
