// Package cli provides the interactive Plateful command-line client.
//
// It wires configuration, local storage, the remote-store gateway, and an
// interactive REPL that supports online/offline operation. Typical flow:
// prompt for credentials, start a background connectivity watcher and the
// periodic sync loop, and execute user commands.
//
// Key features:
//   - Login / Logout
//   - Add, list, show and delete restaurant records
//   - Manual sync plus automatic background sync while online
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
