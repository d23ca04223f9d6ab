// Package knowledge implements the retrieval subsystem: splitting
// documentation into overlapping chunks, embedding them, storing them in
// a vector index, and answering questions grounded on retrieved chunks.
//
// # Ingestion
//
// Ingest walks a directory of .txt/.md/.html documents, splits each into
// windows of about 1000 characters with 200 characters of overlap
// (preferring paragraph, then line, then space boundaries), embeds every
// window, and inserts it into the index. Ingestion is append-only:
// re-ingesting the same documents duplicates them unless the caller
// clears the index first.
//
// If the configured directory is absent, unreadable, or empty, a small
// built-in operations-manual corpus is indexed instead so search never
// runs against an empty index.
//
// # Query
//
// Search embeds the query, fetches the k nearest chunks (ties broken by
// insertion order), and composes an answer by stuffing all retrieved
// chunks into a single grounded model prompt. SimpleSearch skips the
// composition and returns the raw chunks.
//
// # Index backends
//
// Two Index implementations exist: PgIndex on PostgreSQL with pgvector
// (production) and MemoryIndex, a brute-force in-process index used in
// tests and DB-less development.
package knowledge
