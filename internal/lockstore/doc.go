// Package lockstore persists the desired state of every locked target.
//
// The store is a single JSON object keyed by target ID. Saves are atomic
// (temporary file, fsync, rename) so a crash never leaves a truncated file
// behind. A file that cannot be decoded is reported as *CorruptStoreError and
// the agent carries on with no targets rather than failing.
//
// Records are created and removed by editing the file. Watcher notices such
// edits while the agent runs and hands the new records to the engine.
package lockstore
