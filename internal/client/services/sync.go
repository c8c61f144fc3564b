package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/models"
	"github.com/plateful/plateful/internal/client/repositories/metadata"
	"github.com/plateful/plateful/internal/client/repositories/pendingops"
	"github.com/plateful/plateful/internal/client/repositories/records"
	"github.com/plateful/plateful/internal/common"
	"github.com/plateful/plateful/internal/logging"
)

// ErrReauthenticateRequired aborts a sync pass: the credential was rejected
// and every remaining record stays queued until the curator logs in again.
var ErrReauthenticateRequired = errors.New("reauthentication required")

// maxErrorDetail bounds the per-record error list in a summary; the counts
// stay exact.
const maxErrorDetail = 20

// SyncOptions tunes the coordinator.
type SyncOptions struct {
	// MaxRecordRetries is the consecutive-failure threshold past which a
	// record is escalated in the log. The operation is never dropped.
	MaxRecordRetries int

	// MaxValidationRetries bounds how often a validation-rejected payload
	// is re-sent before it is flagged for manual attention.
	MaxValidationRetries int

	// DeleteRetryBackoff is the base delay before retrying a remote delete
	// that failed permanently; it grows linearly with the retry count.
	DeleteRetryBackoff time.Duration
}

func (o *SyncOptions) withDefaults() SyncOptions {
	out := *o
	if out.MaxRecordRetries <= 0 {
		out.MaxRecordRetries = 5
	}
	if out.MaxValidationRetries <= 0 {
		out.MaxValidationRetries = 3
	}
	if out.DeleteRetryBackoff <= 0 {
		out.DeleteRetryBackoff = time.Hour
	}
	return out
}

// SyncService is the sync coordinator: it owns the end-to-end sync
// lifecycle, from selecting pending work to applying per-item results and
// driving the bulk-to-individual fallback.
type SyncService interface {
	// SyncPending runs one pass over at most maxBatch pending records
	// (maxBatch <= 0 means all). A second call while one is in flight
	// returns common.ErrSyncInProgress.
	SyncPending(ctx context.Context, maxBatch int) (*models.SyncSummary, error)

	// StartAutoSync runs SyncPending every interval until ctx is done.
	StartAutoSync(ctx context.Context, interval time.Duration, maxBatch int)
}

type syncService struct {
	gateway    client.Client
	records    records.Repository
	pending    pendingops.Repository
	meta       metadata.Repository
	reconciler *Reconciler
	log        logging.Logger
	curatorID  string
	opts       SyncOptions

	inFlight atomic.Bool
	now      func() time.Time
}

// NewSyncService wires the coordinator. curatorID is the acting curator; all
// ownership decisions are made on their behalf.
func NewSyncService(gw client.Client, recs records.Repository, pend pendingops.Repository,
	meta metadata.Repository, reconciler *Reconciler, log logging.Logger,
	curatorID string, opts SyncOptions) SyncService {
	return &syncService{
		gateway:    gw,
		records:    recs,
		pending:    pend,
		meta:       meta,
		reconciler: reconciler,
		log:        log.With("component", "sync"),
		curatorID:  curatorID,
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

func (s *syncService) SyncPending(ctx context.Context, maxBatch int) (*models.SyncSummary, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	summary := &models.SyncSummary{}

	items, err := s.selectPending(ctx, maxBatch, summary)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// Nothing outstanding: an idempotent no-op with zero network calls.
		return summary, nil
	}

	snapshot, err := s.fetchSnapshot(ctx, items)
	if errors.Is(err, client.ErrUnauthorized) {
		return summary, ErrReauthenticateRequired
	}

	batch, err := s.reconciler.BuildBatch(ctx, s.curatorID, items, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile batch: %w", err)
	}

	for _, item := range batch.Skipped {
		if err := s.resolveLocally(ctx, item); err != nil {
			return nil, err
		}
		summary.Skipped++
	}

	switch {
	case batch.Size() == 0:
		// fall through to bookkeeping

	case batch.Size() == 1:
		// Bulk batching is not worth its overhead for one item.
		if err := s.syncIndividually(ctx, batch.Items(), summary); err != nil {
			return summary, err
		}

	default:
		if err := s.syncBulk(ctx, batch, summary); err != nil {
			return summary, err
		}
	}

	s.finishPass(ctx, summary)
	return summary, nil
}

// selectPending loads due pending operations oldest-first, collapses them to
// one net operation per record and resolves entries whose record vanished.
func (s *syncService) selectPending(ctx context.Context, maxBatch int, summary *models.SyncSummary) ([]models.BatchItem, error) {
	ops, err := s.pending.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending operations: %w", err)
	}

	now := s.now()
	byRecord := make(map[string][]*models.PendingOperation)
	var order []string
	for _, op := range ops {
		if !op.Due(now) {
			continue
		}
		if _, seen := byRecord[op.LocalID]; !seen {
			order = append(order, op.LocalID)
		}
		byRecord[op.LocalID] = append(byRecord[op.LocalID], op)
	}

	// GetAll returns ops oldest-first; keep record order by earliest op.
	sort.SliceStable(order, func(i, j int) bool {
		return byRecord[order[i]][0].EnqueuedAt.Before(byRecord[order[j]][0].EnqueuedAt)
	})

	var items []models.BatchItem
	for _, localID := range order {
		if maxBatch > 0 && len(items) >= maxBatch {
			break
		}
		net := CollapseOps(byRecord[localID])
		rec, err := s.records.GetByLocalID(ctx, localID)
		if errors.Is(err, common.ErrorNotFound) {
			// Record purged outside the sync path: the queue entry is stale.
			if err := s.pending.RemoveAllForRecord(ctx, localID); err != nil {
				return nil, err
			}
			summary.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, models.BatchItem{Record: rec, Op: net})
	}
	return items, nil
}

// fetchSnapshot pulls the recent remote state when the batch can use it.
// Failures other than auth are tolerated: a missed duplicate downgrade is
// recoverable, a blocked sync pass is not.
func (s *syncService) fetchSnapshot(ctx context.Context, items []models.BatchItem) ([]client.RemoteRecord, error) {
	needed := false
	for _, item := range items {
		if item.Op.Kind != models.OpDelete {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	snapshot, err := s.gateway.FetchSnapshot(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		return nil, err
	}
	if err != nil {
		s.log.Warn(ctx, "snapshot fetch failed, proceeding without duplicate detection", "error", err)
		return nil, nil
	}
	return snapshot, nil
}

// resolveLocally finishes a tombstone that never reached the remote store.
func (s *syncService) resolveLocally(ctx context.Context, item models.BatchItem) error {
	if err := s.pending.RemoveAllForRecord(ctx, item.Record.LocalID); err != nil {
		return err
	}
	if err := s.records.Purge(ctx, item.Record.LocalID); err != nil {
		return err
	}
	s.log.Info(ctx, "purged never-synced tombstone", "localId", item.Record.LocalID)
	return nil
}

// syncBulk submits the whole batch as one bulk call and interprets per-item
// results. A transport-level failure of the bulk call itself falls back to
// retrying every record individually, which guarantees forward progress
// under backends that reject the batch wholesale.
func (s *syncService) syncBulk(ctx context.Context, batch *models.Batch, summary *models.SyncSummary) error {
	req := &client.BulkRequest{}
	for _, item := range batch.Creates {
		req.Creates = append(req.Creates, s.toPayload(item.Record))
	}
	for _, item := range batch.Updates {
		req.Updates = append(req.Updates, client.RemoteUpdate{
			RemoteID:      item.Record.RemoteID,
			RecordPayload: s.toPayload(item.Record),
		})
	}
	for _, item := range batch.Deletes {
		req.Deletes = append(req.Deletes, item.Record.RemoteID)
	}

	resp, err := s.gateway.BulkSync(ctx, req)
	if errors.Is(err, client.ErrUnauthorized) {
		return ErrReauthenticateRequired
	}
	if err != nil {
		s.log.Warn(ctx, "bulk sync failed, falling back to individual records",
			"records", batch.Size(), "error", err)
		return s.syncIndividually(ctx, batch.Items(), summary)
	}

	return s.applyBulkResponse(ctx, batch, resp, summary)
}

// applyBulkResponse commits successes and keeps failures queued. Partial
// failure never fails the pass.
func (s *syncService) applyBulkResponse(ctx context.Context, batch *models.Batch, resp *client.BulkResponse, summary *models.SyncSummary) error {
	byLocal := make(map[string]models.BatchItem)
	byRemote := make(map[string]models.BatchItem)
	for _, item := range batch.Items() {
		byLocal[item.Record.LocalID] = item
		if item.Record.Synced() {
			byRemote[item.Record.RemoteID] = item
		}
	}
	resolved := make(map[string]bool)

	for _, res := range append(resp.Created, resp.Updated...) {
		item, ok := byLocal[res.LocalID]
		if !ok {
			item, ok = byRemote[res.RemoteID]
		}
		if !ok {
			s.log.Warn(ctx, "bulk result for unknown record", "localId", res.LocalID, "remoteId", res.RemoteID)
			continue
		}
		if err := s.commitSuccess(ctx, item, res.RemoteID, summary); err != nil {
			return err
		}
		resolved[item.Record.LocalID] = true
	}

	for _, remoteID := range resp.Deleted {
		item, ok := byRemote[remoteID]
		if !ok {
			continue
		}
		if err := s.commitSuccess(ctx, item, remoteID, summary); err != nil {
			return err
		}
		resolved[item.Record.LocalID] = true
	}

	for _, fail := range resp.Failed {
		item, ok := byLocal[fail.Identifier]
		if !ok {
			item, ok = byRemote[fail.Identifier]
		}
		if !ok {
			continue
		}
		if err := s.commitFailure(ctx, item, fail.Err(), summary); err != nil {
			return err
		}
		resolved[item.Record.LocalID] = true
	}

	// Items the response never mentioned have an unknown remote outcome:
	// keep them queued as transient failures.
	for _, item := range batch.Items() {
		if resolved[item.Record.LocalID] {
			continue
		}
		err := fmt.Errorf("%w: missing from bulk response", client.ErrUnavailable)
		if err := s.commitFailure(ctx, item, err, summary); err != nil {
			return err
		}
	}
	return nil
}

// syncIndividually executes the single-record path for every item, in
// order. An auth failure aborts immediately: the remaining records stay
// queued unattempted.
func (s *syncService) syncIndividually(ctx context.Context, items []models.BatchItem, summary *models.SyncSummary) error {
	for _, item := range items {
		remoteID, err := s.syncOne(ctx, item)
		if errors.Is(err, client.ErrUnauthorized) {
			return ErrReauthenticateRequired
		}
		if err != nil {
			if err := s.commitFailure(ctx, item, err, summary); err != nil {
				return err
			}
			continue
		}
		if err := s.commitSuccess(ctx, item, remoteID, summary); err != nil {
			return err
		}
	}
	return nil
}

// syncOne performs one operation against the per-record endpoints. A delete
// hitting a row that is already gone counts as confirmed.
func (s *syncService) syncOne(ctx context.Context, item models.BatchItem) (string, error) {
	rec := item.Record
	switch item.Op.Kind {
	case models.OpCreate:
		return s.gateway.CreateRecord(ctx, s.toPayload(rec))
	case models.OpUpdate:
		return rec.RemoteID, s.gateway.UpdateRecord(ctx, rec.RemoteID, s.toPayload(rec))
	case models.OpDelete:
		err := s.gateway.DeleteRecord(ctx, rec.RemoteID)
		if errors.Is(err, client.ErrNotFound) {
			err = nil
		}
		return rec.RemoteID, err
	default:
		return "", fmt.Errorf("%w: unknown operation kind %q", common.ErrorInternal, item.Op.Kind)
	}
}

func (s *syncService) toPayload(rec *models.Record) client.RecordPayload {
	return client.RecordPayload{
		LocalID:        rec.LocalID,
		SharedEntityID: rec.SharedEntityID,
		OwnerID:        rec.OwnerID,
		OriginOwnerID:  rec.OriginOwnerID,
		Payload:        rec.Payload,
	}
}

// commitSuccess applies a confirmed remote outcome to the local store.
func (s *syncService) commitSuccess(ctx context.Context, item models.BatchItem, remoteID string, summary *models.SyncSummary) error {
	rec := item.Record

	if item.Op.Kind == models.OpDelete {
		if err := s.records.SetDeleteState(ctx, rec.LocalID, models.DeleteStateRemoteConfirmed); err != nil {
			return err
		}
	} else {
		if err := s.records.ApplySyncResult(ctx, rec.LocalID, remoteID); err != nil {
			return err
		}
	}
	if err := s.pending.Remove(ctx, rec.LocalID, item.Op.Kind); err != nil {
		return err
	}
	summary.Synced++
	return nil
}

// commitFailure keeps the operation queued with updated bookkeeping and
// classifies the failure for the summary.
func (s *syncService) commitFailure(ctx context.Context, item models.BatchItem, cause error, summary *models.SyncSummary) error {
	rec, op := item.Record, item.Op

	// The row is already gone remotely: that is what the delete wanted.
	if op.Kind == models.OpDelete && errors.Is(cause, client.ErrNotFound) {
		return s.commitSuccess(ctx, item, rec.RemoteID, summary)
	}

	reason := cause.Error()
	notBefore := time.Time{}
	if op.Kind == models.OpDelete && !errors.Is(cause, client.ErrUnavailable) {
		// Permanent remote-delete failure: the record stays hidden locally
		// and the delete retries on a longer backoff. A hidden-but-present
		// remote row is the least harmful failure mode.
		if err := s.records.SetDeleteState(ctx, rec.LocalID, models.DeleteStateRemoteFailed); err != nil {
			return err
		}
		notBefore = s.now().Add(time.Duration(op.RetryCount+1) * s.opts.DeleteRetryBackoff)
	}

	if err := s.pending.RecordFailure(ctx, rec.LocalID, op.Kind, reason, notBefore); err != nil {
		return err
	}

	retries := op.RetryCount + 1
	switch {
	case errors.Is(cause, client.ErrValidation) && retries > s.opts.MaxValidationRetries:
		s.log.Error(ctx, "record rejected by remote validation, needs manual attention",
			"localId", rec.LocalID, "retries", retries, "error", cause)
	case retries > s.opts.MaxRecordRetries:
		s.log.Error(ctx, "record keeps failing to sync",
			"localId", rec.LocalID, "retries", retries, "error", cause)
	}

	summary.Failed++
	if len(summary.Errors) < maxErrorDetail {
		summary.Errors = append(summary.Errors, models.SyncError{
			LocalID: rec.LocalID,
			Kind:    op.Kind,
			Reason:  reason,
		})
	}
	return nil
}

// finishPass records bookkeeping after a completed pass.
func (s *syncService) finishPass(ctx context.Context, summary *models.SyncSummary) {
	ts := s.now().UTC().Format(time.RFC3339)
	if err := s.meta.Set(ctx, metadata.KeyLastSyncAt, []byte(ts)); err != nil {
		s.log.Warn(ctx, "failed to record last sync time", "error", err)
	}
	s.log.Info(ctx, "sync pass finished",
		"synced", summary.Synced, "failed", summary.Failed, "skipped", summary.Skipped)
}

// StartAutoSync runs periodic passes until ctx is cancelled. An overlapping
// trigger is coalesced into a no-op by the in-flight guard.
func (s *syncService) StartAutoSync(ctx context.Context, interval time.Duration, maxBatch int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SyncPending(ctx, maxBatch); err != nil &&
				!errors.Is(err, common.ErrSyncInProgress) {
				s.log.Warn(ctx, "background sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
