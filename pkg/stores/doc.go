// Package stores provides persistence layer implementations for Modulaur.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and CRUD operations for user-created pages and the panels placed on
// them. Panel and page rows reference registry type identifiers by
// string; dangling references are resolved to fallbacks at render time
// rather than rejected here.
package stores
