// Package redis stores answers and tool errors in Redis.
package redis
