package cli

import (
	"bufio"
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/config"
	"github.com/plateful/plateful/internal/client/services"
	"github.com/plateful/plateful/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config        *config.Config
	repos         *client.Repositories
	gateway       client.Client
	newGateway    func(curatorID string) client.Client
	authService   services.AuthService
	recordService services.RecordService
	syncService   services.SyncService
	syncCancel    context.CancelFunc
	log           logging.Logger
	curatorID     string
	Mode          Mode
	reader        *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	repos, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	app := &App{
		config: c,
		repos:  repos,
		log:    logging.NewSlogLogger(slog.Default()),
		reader: bufio.NewReader(os.Stdin),
	}

	// The gateway is rebuilt on login so the curator identification header
	// reflects whoever is acting.
	app.newGateway = func(curatorID string) client.Client {
		return client.NewHTTPClient(client.Options{
			BaseURL:       c.ServerBaseURL,
			CuratorID:     curatorID,
			TokenProvider: app.token,
		})
	}
	app.gateway = app.newGateway("")

	app.authService = services.NewAuthService(app.gateway, repos.Metadata)
	resolver := services.NewConflictResolver(repos.Records)
	app.recordService = services.NewRecordService(repos.DB, repos.Records, repos.PendingOps, resolver)

	return app, nil
}

// token adapts the auth service to the gateway's TokenProvider seam. It is
// wired before the auth service exists, hence the indirection.
func (a *App) token(ctx context.Context) (string, error) {
	return a.authService.Token(ctx)
}

// initSyncService (re)builds the sync coordinator for the logged-in curator.
// Ownership decisions depend on who is acting, so the coordinator cannot
// exist before a login.
func (a *App) initSyncService(curatorID string) {
	a.curatorID = curatorID
	resolver := services.NewConflictResolver(a.repos.Records)
	reconciler := services.NewReconciler(a.repos.Records, a.repos.PendingOps, resolver, a.log)
	a.syncService = services.NewSyncService(a.gateway, a.repos.Records, a.repos.PendingOps,
		a.repos.Metadata, reconciler, a.log, curatorID, services.SyncOptions{})
}

// stopSync cancels the running auto-sync loop, if any. Called before a new
// loop starts and on logout, so at most one loop is ever live.
func (a *App) stopSync() {
	if a.syncCancel != nil {
		a.syncCancel()
		a.syncCancel = nil
	}
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.curatorID != ""
}

// StartOnlineStatusWatcher probes server reachability on a fixed cadence.
// The offline-to-online transition triggers an immediate sync pass so edits
// made offline reach the server as soon as it is back.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					wasOffline := a.Mode == ModeOffline
					a.setMode(ModeOnline)
					if wasOffline && a.syncService != nil {
						go a.Sync(ctx)
					}
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
