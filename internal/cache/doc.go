// Package cache provides byte-oriented block caches keyed by blob name and
// block index. Remote blob stores wrap reads with one to avoid refetching
// hot ranges of snapshot segments.
//
// Two implementations are provided. LRU is a plain mutex-guarded cache.
// ShardedLRU spreads entries over 64 LRU shards to cut lock contention
// under concurrent partition loads.
package cache
