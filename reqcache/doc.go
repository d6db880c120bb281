// Package reqcache provides a command-keyed request cache with single-flight
// deduplication, used between read-oriented services and the backend command
// executor to avoid redundant round-trips.
//
// # Cached calls
//
// [Do] is the single entry point for cacheable reads. It derives a
// deterministic key from the command name and its arguments, answers from the
// in-memory store when a live entry exists, joins an already in-flight fetch
// for the same key when one is pending, and otherwise issues the fetch
// exactly once:
//
//	files, err := reqcache.Do(ctx, cache, "load_files", args, 30*time.Second,
//	    func(ctx context.Context) ([]File, error) {
//	        return fetchFiles(ctx, args)
//	    })
//
// For any set of overlapping calls with the same (command, arguments) the
// underlying fetch executes exactly once and every caller observes the same
// value or the same error. A failed fetch never populates the store, so the
// next call issues a fresh fetch.
//
// # Invalidation
//
// Mutating operations never go through the cache. After a mutation succeeds,
// and before returning to its caller, the mutating code must call
// [Cache.Evict] with every command name whose cached results the mutation
// could have staled. Keys are prefixed with their command name, so eviction
// by command removes all entries for that command regardless of arguments.
//
// # Expiry
//
// Entries are valid while now - writtenAt < ttl, checked on every read.
// A background sweeper additionally removes expired entries and forgets
// in-flight registrations older than the orphan threshold; the sweeper only
// bounds memory and is not needed for correctness. Close stops it.
//
// # Cancellation
//
// A caller that abandons its wait (context cancellation) stops waiting but
// does not cancel the shared fetch: other waiters still receive the result.
package reqcache
