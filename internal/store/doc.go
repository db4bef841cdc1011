// Package store provides a SQLite-backed journal of page responses.
//
// Every response a RecordingTransport sees is appended to the pages table
// keyed by a request key derived from its URL; a ReplayTransport serves
// the latest journaled response for a URL without touching the network.
// Recording a live session and replaying it later makes paginated
// queries reproducible offline.
//
// # Request Keys
//
// RequestKey is SHA-256 over a domain prefix, a 0x00 separator, and the
// NFC-normalized request URL, so visually identical URLs map to one key.
//
// # Database Configuration
//
// Every connection runs with journal_mode=WAL, synchronous=NORMAL and a
// 5 second busy_timeout, so a replay can read a journal another process is
// still recording into. PRAGMA user_version holds the journal format; Open
// refuses journals stamped with a newer format than it knows.
package store
