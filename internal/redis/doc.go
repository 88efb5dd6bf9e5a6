// Package redis provides the Redis client and the short-TTL active-session
// cache. Redis is optional: the pipeline runs without it, paying a PostgreSQL
// round trip per resolution instead.
package redis
