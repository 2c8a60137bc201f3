// Package redis implements domain.KeyValueStore on Redis.
//
// The client carries two hooks: MetricsHook records every command, and
// CircuitBreakerHook fails fast while Redis is unreachable, serving recently
// read values from a small in-process cache.
package redis
