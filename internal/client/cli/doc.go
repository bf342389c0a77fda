// Package cli provides the interactive trial editor.
//
// It wires configuration, the local draft store, the record store client
// and the optional attachment store into a services.TrialService, and runs
// a line-oriented REPL over it. A background watcher pings the record
// store and switches the prompt between online and offline mode.
//
// Every edit is written to the draft store as it happens, so leaving the
// editor without saving loses nothing: the next open restores the drafts.
//
// The REPL is started via App.Run(ctx, trialID), which blocks until the
// user exits. See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
