// Package storage persists what must survive reconnects: the session token,
// the device account credentials and the addresses that answered before.
//
// Two providers are available: MemoryStore, for single-process use, and
// PostgresStore, which keeps the session and address history in PostgreSQL.
package storage
