// Package editor holds the in-memory edit session of one trial: the
// normalized state of every section, the load and save flags, and the
// reducer that applies user edits.
//
// Every accepted edit is written through to the draft store (for drafted
// sections) and appended to the change log of the logs section. Loads are
// tokenized: only the most recently started load may publish its result.
package editor
