// Package kv provides the key/value repositories behind the draft store.
//
// Two backends implement Repository: SQLiteRepository keeps drafts in a
// local database file, RedisRepository keeps them in a shared Redis so a
// user can pick up drafts from another machine. Both return (nil, nil) from
// Get when a key is absent.
package kv
