/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache wraps patrickmn/go-cache into a TTL result cache that
// sits in front of an expensive solve, keyed on a problem's Fingerprint.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
)

// Entry is a completed solve result, keyed by problem fingerprint.
type Entry struct {
	Schedule   v1.Schedule
	Score      float64
	SolverUsed string
}

// Cache is a TTL-expiring, last-write-wins store of solve results. A
// nil *Cache is valid and behaves as an always-miss cache, so callers
// can disable caching by simply not constructing one.
type Cache struct {
	inner *gocache.Cache
}

// New builds a Cache whose entries expire ttl after being written,
// swept for expiry on a fixed interval equal to ttl (go-cache's
// "cleanup interval" parameter).
func New(ttl time.Duration) *Cache {
	return &Cache{inner: gocache.New(ttl, ttl)}
}

// Get returns the cached entry for fingerprint, if present and
// unexpired.
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	if c == nil || c.inner == nil {
		return Entry{}, false
	}
	v, ok := c.inner.Get(fingerprint)
	if !ok {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	return entry, ok
}

// Put stores entry under fingerprint with the cache's default TTL.
// Concurrent writers racing on the same fingerprint are last-write-wins,
// matching go-cache's own semantics; the selector never needs
// read-modify-write on a cache entry.
func (c *Cache) Put(fingerprint string, entry Entry) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.SetDefault(fingerprint, entry)
}

// Delete evicts fingerprint's entry, if any.
func (c *Cache) Delete(fingerprint string) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Delete(fingerprint)
}
