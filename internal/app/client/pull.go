package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

// Puller applies remote changes to the local store, table by table. It always
// runs after the push phase so locally pending work has had its chance to
// reach the server first.
type Puller struct {
	storage   Storage
	transport sync.Transport
	log       *slog.Logger
	pageLimit int
}

const defaultPullPageLimit = 500

func NewPuller(storage Storage, transport sync.Transport, log *slog.Logger) *Puller {
	return &Puller{
		storage:   storage,
		transport: transport,
		log:       log.With("component", "pull"),
		pageLimit: defaultPullPageLimit,
	}
}

// Pull fetches and applies changes for every entity table since that table's
// watermark. A failing table is reported and does not stop the others; its
// watermark is left untouched so the next pull re-fetches the same window.
func (p *Puller) Pull(ctx context.Context) sync.PullResult {
	result := sync.PullResult{Success: true}
	var errs []string

	for _, table := range record.Tables {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.Error = err.Error()
			return result
		}

		applied, err := p.pullTable(ctx, table)
		result.Applied += applied
		if err != nil {
			p.log.Error("failed to pull table", "table", table, "error", err)
			result.Success = false
			errs = append(errs, fmt.Sprintf("%s: %v", table, err))
		}
	}

	if len(errs) > 0 {
		result.Error = strings.Join(errs, "; ")
	}

	return result
}

// pullTable pages through one table's remote changes with an in-memory
// (since, after-id) cursor, so records sharing one timestamp across a page
// boundary are not skipped. The persisted watermark advances only once the
// whole table applied cleanly, and only to the server clock, never the local
// one; a failure mid-pagination re-fetches the window on the next cycle and
// the idempotent apply absorbs the repeats.
func (p *Puller) pullTable(ctx context.Context, table string) (int, error) {
	applied := 0

	since, err := p.watermarkArg(table)
	if err != nil {
		return 0, err
	}
	afterID := ""

	for {
		resp, err := p.transport.Changes(ctx, sync.ChangesRequest{
			Table:   table,
			Since:   since,
			AfterID: afterID,
			Limit:   p.pageLimit,
		})
		if err != nil {
			return applied, err
		}

		pageApplied, err := p.applyPage(table, resp.Records)
		applied += pageApplied
		if err != nil {
			return applied, err
		}

		if !resp.HasMore {
			if !resp.ServerTime.IsZero() {
				if err := p.storage.AdvanceWatermark(table, resp.ServerTime); err != nil {
					return applied, err
				}
			}
			return applied, nil
		}

		if len(resp.Records) == 0 {
			return applied, fmt.Errorf("server reported more changes but sent none")
		}
		last := resp.Records[len(resp.Records)-1]
		ts := last.UpdatedAt
		since, afterID = &ts, last.ServerID
	}
}

// applyPage writes one page of remote records, skipping any record whose
// local copy is still pending: unpushed local work wins until it has been
// pushed.
func (p *Puller) applyPage(table string, records []sync.RemoteRecord) (int, error) {
	applied := 0

	for i := range records {
		rr := &records[i]

		local, err := p.storage.GetRecord(table, rr.ClientID)
		if err != nil && !errors.Is(err, record.ErrNotFound) {
			return applied, err
		}
		if local != nil && local.IsPending() {
			p.log.Debug("skipping remote record, local copy pending",
				"table", table, "client_id", rr.ClientID)
			continue
		}

		if err := p.storage.ApplyRemote(rr); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

func (p *Puller) watermarkArg(table string) (*time.Time, error) {
	ts, ok, err := p.storage.Watermark(table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &ts, nil
}
