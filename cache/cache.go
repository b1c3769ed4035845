package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Entry is one memoized stage result. Generation identifies the assistant
// instance the value was computed against.
type Entry struct {
	Value      any
	CreatedAt  time.Time
	Generation uint64
}

// Cache holds stage results. Entries never expire on their own; they are
// dropped together by Flush.
type Cache struct {
	cache *cache.Cache
}

func New() *Cache {
	return &Cache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (c *Cache) Get(key string) (Entry, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return Entry{}, false
	}
	entry, ok := value.(Entry)
	return entry, ok
}

func (c *Cache) Set(key string, entry Entry) {
	c.cache.Set(key, entry, cache.NoExpiration)
}

func (c *Cache) Delete(key string) {
	c.cache.Delete(key)
}

func (c *Cache) Flush() {
	c.cache.Flush()
}

func (c *Cache) ItemCount() int {
	return c.cache.ItemCount()
}

// Canonicaler is implemented by argument types that define their own
// value-equality encoding, such as query results.
type Canonicaler interface {
	Canonical() []byte
}

// Key derives the cache key for a stage call from the stage name and the
// ordered argument values. Each encoded argument is length-prefixed so
// distinct tuples never share hash input.
func Key(stage string, args ...any) string {
	h := sha256.New()
	h.Write([]byte(stage))
	for i, arg := range args {
		enc := encodeArg(arg)
		fmt.Fprintf(h, "\x00%d:%d:", i, len(enc))
		h.Write(enc)
	}
	return stage + ":" + hex.EncodeToString(h.Sum(nil))
}

func encodeArg(arg any) []byte {
	switch v := arg.(type) {
	case nil:
		return []byte("null")
	case Canonicaler:
		return v.Canonical()
	case string:
		return []byte("s" + v)
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return []byte(fmt.Sprintf("%#v", arg))
	}
	return data
}
