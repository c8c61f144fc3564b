package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/services"
	"github.com/plateful/plateful/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts the user for credentials and tries to authenticate.
//
// If the server is unreachable (errors.Is(err, client.ErrUnavailable)) and a
// stored credential exists from an earlier session, the app continues in
// offline mode: records remain editable and every edit queues for the next
// successful sync. On a fresh success the sync coordinator is (re)built for
// the curator and the periodic sync loop starts.
//
// The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	curatorID, err := getSimpleText(a.reader, "Enter curator id", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, curatorID, password); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			stored, storedErr := a.authService.CuratorID(ctx)
			if storedErr == nil && stored == curatorID {
				log.Printf("Server unavailable, continuing offline")
				a.startSync(ctx, curatorID)
				a.setMode(ModeOffline)
				return nil
			}
		}
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Login successful")
	a.startSync(ctx, curatorID)
	a.setMode(ModeOnline)
	go a.importRemote(ctx, curatorID)
	return nil
}

// importRemote pulls the curator's remote records into the local store, so a
// fresh device starts with their existing collection. Best-effort: a failed
// import just means the records arrive with a later sync.
func (a *App) importRemote(ctx context.Context, curatorID string) {
	snapshot, err := a.gateway.FetchSnapshot(ctx)
	if err != nil {
		log.Printf("could not fetch remote records: %s", err.Error())
		return
	}
	imported, err := a.recordService.ImportSnapshot(ctx, curatorID, snapshot)
	if err != nil {
		log.Printf("could not import remote records: %s", err.Error())
		return
	}
	if imported > 0 {
		log.Printf("imported %d records from the server", imported)
	}
}

// startSync builds the coordinator for the curator and launches the
// background sync loop. Any loop left over from an earlier session is
// cancelled first, so a re-login never stacks a second loop with a stale
// curator baked in. The gateway is rebuilt too, so requests carry the
// acting curator's identification header.
func (a *App) startSync(ctx context.Context, curatorID string) {
	a.stopSync()
	a.gateway = a.newGateway(curatorID)
	a.authService = services.NewAuthService(a.gateway, a.repos.Metadata)
	a.initSyncService(curatorID)
	syncCtx, cancel := context.WithCancel(ctx)
	a.syncCancel = cancel
	go a.syncService.StartAutoSync(syncCtx, a.config.SyncInterval, a.config.MaxBatch)
}

// Logout stops the background sync loop and drops the stored credential.
// Local records and queued work stay put; they resume syncing after the
// next login.
func (a *App) Logout(ctx context.Context) error {
	a.stopSync()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.curatorID = ""
	a.syncService = nil
	fmt.Println("Logged out")
	return nil
}

// Reset wipes the stored session and sync bookkeeping: credential, curator
// id and last-sync marker. Records and queued edits stay; they re-attach
// after the next login.
func (a *App) Reset(ctx context.Context) error {
	a.stopSync()
	a.curatorID = ""
	a.syncService = nil
	if err := a.repos.Metadata.Clear(ctx); err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Println("Cleared stored session data")
	return nil
}
