// Package rediskit is a caching and task-queueing layer over Redis.
//
// Components:
//   - Manager: generic cache with tagged serialization, size-gated
//     compression, namespaced keys and bounded retry with backoff.
//   - ModelResultCache / SessionCache: policy wrappers fixing TTLs and key
//     shapes for computed artifacts and session blobs.
//   - queue.PriorityQueue: priority-ordered tasks with explicit
//     processing/failed bookkeeping (atomic dequeue via server-side script).
//   - ratelimit.Limiter: per-identifier sliding-window admission control,
//     failing open when the store is unreachable.
//   - store.Store: one connection pool abstracting standalone, sentinel and
//     cluster topologies behind a uniform command interface.
//
// Keys:
//
//	{env}:{service}:{prefix}:{key}        - cache values
//	{env}:{service}:{prefix}:{key}:meta   - entry metadata (method, compression, sizes)
//	queue:{name}, queue:{name}:processing, queue:{name}:failed
//	rate_limit:{identifier}
//
// Failure policy: the cache degrades to "always miss", the limiter fails
// open, and the queue reports failure/null - transport trouble never
// propagates to callers as an exception-like error.
package rediskit
