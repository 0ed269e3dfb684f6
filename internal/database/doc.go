// Package database opens the PostgreSQL pool backing the persistent session store.
package database
