package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultTTL = 7 * 24 * time.Hour

// Cache stores system-under-test outputs on disk, keyed by the
// configuration's content hash plus the input. Because the config
// hash already covers every attribute that can change an answer, a
// hit is safe to replay across runs until the TTL expires.
type Cache struct {
	Dir string
	TTL time.Duration
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".aimatrix", "cache")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{Dir: dir, TTL: ttl}, nil
}

type entry struct {
	Output     string    `json:"output"`
	CachedAt   time.Time `json:"cached_at"`
	SystemName string    `json:"system_name"`
}

func key(systemName, configHash, input string) string {
	parts := []string{systemName, configHash, input}
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

func (c *Cache) path(k string) string {
	return filepath.Join(c.Dir, k+".json.gz")
}

func (c *Cache) Get(systemName, configHash, input string) (string, bool) {
	k := key(systemName, configHash, input)
	p := c.path(k)
	f, err := os.Open(p)
	if err != nil {
		return "", false
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", false
	}
	defer gz.Close()
	var e entry
	if err := json.NewDecoder(gz).Decode(&e); err != nil {
		return "", false
	}
	if c.TTL > 0 && time.Since(e.CachedAt) > c.TTL {
		_ = os.Remove(p)
		return "", false
	}
	return e.Output, true
}

func (c *Cache) Set(systemName, configHash, input, output string) error {
	k := key(systemName, configHash, input)
	f, err := os.Create(c.path(k))
	if err != nil {
		return err
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	return json.NewEncoder(gz).Encode(entry{
		Output:     output,
		CachedAt:   time.Now().UTC(),
		SystemName: systemName,
	})
}
