package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/plateful/plateful/internal/client/repositories/metadata"
	"github.com/plateful/plateful/internal/client/services"
	"github.com/plateful/plateful/internal/common"
)

// List prints the curator's records, one line each.
func (a *App) List(ctx context.Context) error {
	list, err := a.recordService.List(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if len(list) == 0 {
		fmt.Println("No records yet, try 'add'")
		return nil
	}
	for _, rec := range list {
		state := "synced"
		if !rec.Synced() {
			state = "local only"
		}
		fmt.Printf("%s  %-30s  [%s]\n", rec.LocalID, rec.Payload.Name, state)
	}
	return nil
}

// Sync runs one manual sync pass and prints the outcome.
func (a *App) Sync(ctx context.Context) error {
	if a.syncService == nil {
		fmt.Println("Log in first")
		return nil
	}

	summary, err := a.syncService.SyncPending(ctx, a.config.MaxBatch)
	if errors.Is(err, common.ErrSyncInProgress) {
		fmt.Println("A sync pass is already running")
		return nil
	}
	if errors.Is(err, services.ErrReauthenticateRequired) {
		fmt.Println("Session expired, please log in again")
		return err
	}
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Synced: %d, failed: %d, resolved locally: %d\n",
		summary.Synced, summary.Failed, summary.Skipped)
	for _, se := range summary.Errors {
		fmt.Printf("  %s (%s): %s\n", se.LocalID, se.Kind, se.Reason)
	}
	return nil
}

// Status shows outstanding work and the last successful sync time.
func (a *App) Status(ctx context.Context) error {
	ops, err := a.repos.PendingOps.GetAll(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Mode: %s\n", a.Mode)
	fmt.Printf("Pending operations: %d\n", len(ops))
	for _, op := range ops {
		line := fmt.Sprintf("  %s %s", op.Kind, op.LocalID)
		if op.RetryCount > 0 {
			line += fmt.Sprintf(" (retries: %d, last error: %s)", op.RetryCount, op.LastError)
		}
		fmt.Println(line)
	}

	meta, err := a.repos.Metadata.List(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	if v, ok := meta[metadata.KeyCuratorID]; ok {
		fmt.Printf("Stored curator: %s\n", string(v))
	}
	if v, ok := meta[metadata.KeyLastSyncAt]; ok {
		fmt.Printf("Last sync: %s\n", string(v))
	}
	return nil
}
