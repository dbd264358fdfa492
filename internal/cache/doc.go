// Package cache keeps model responses between runs so unchanged chunks are
// not sent to the provider again.
//
// Keys combine the provider, model and hashes of both prompts; entries are
// stored under the SHA-256 of the key. A bounded memory LRU
// (hashicorp/golang-lru) answers repeat lookups within a process, and each
// entry is persisted as one JSON file carrying its own expiry time. Expired
// entries are ignored on read, deleted lazily, and removed in bulk by Prune.
package cache
