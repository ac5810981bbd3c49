// Package cache stores answers under a normalized (question, mode, branch,
// books) key.
package cache

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/pkg/metrics"
	"textbook-qa-be/pkg/rag"

	"github.com/google/uuid"
)

const module = "ANSWER_CACHE"

type Entry struct {
	Key       string     `json:"key"`
	Answer    string     `json:"answer"`
	BookID    *uuid.UUID `json:"book_id,omitempty"`
	BookName  string     `json:"book_name,omitempty"`
	Page      int        `json:"page,omitempty"`
	Mode      string     `json:"mode"`
	Branch    string     `json:"branch"`
	CreatedAt time.Time  `json:"created_at"`
}

// Key identifies a cacheable question. BookIDs narrows retrieval, so an
// answer drawn from one set of books is never served for another.
type Key struct {
	Question string
	Mode     rag.Mode
	Branch   string
	BookIDs  []uuid.UUID
}

func (k Key) String() string {
	return NormalizeKey(k.Question, k.Mode, k.Branch, k.BookIDs...)
}

// Source is the textbook provenance kept next to a cached answer.
type Source struct {
	BookID   *uuid.UUID
	BookName string
	Page     int
}

// Store is the backing key/value collaborator. Get returns (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
}

// Cache wraps a Store. Its errors never reach the caller.
type Cache struct {
	store  Store
	logger logger.ILogger
	ttl    time.Duration
	now    func() time.Time
}

// New builds a Cache. ttl <= 0 keeps entries forever.
func New(store Store, log logger.ILogger, ttl time.Duration) *Cache {
	return &Cache{store: store, logger: log, ttl: ttl, now: time.Now}
}

// NormalizeKey cleans the question and branch, then appends the mode and
// the sorted book scope so answers from different modes or books never collide.
func NormalizeKey(question string, mode rag.Mode, branch string, bookIDs ...uuid.UUID) string {
	if mode != rag.ModeExpanded {
		mode = rag.ModeStrict
	}
	key := clean(question) + "|" + string(mode) + "|" + clean(branch)
	if scope := bookScope(bookIDs); scope != "" {
		key += "|" + scope
	}
	return key
}

// clean lowercases, drops punctuation and symbols, and collapses whitespace.
// The "|" separator is a symbol, so it never survives inside a part.
func clean(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func bookScope(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return ""
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id.String())
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// ShouldStore rejects answers produced with neither textbook context nor web
// augmentation.
func ShouldStore(retrievedChunks int, mode rag.Mode) bool {
	return retrievedChunks > 0 || mode == rag.ModeExpanded
}

func (c *Cache) Lookup(ctx context.Context, k Key) (*Entry, bool) {
	key := k.String()

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn(module, "Cache lookup failed", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	if entry == nil || strings.TrimSpace(entry.Answer) == "" {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if c.ttl > 0 && !entry.CreatedAt.IsZero() && c.now().Sub(entry.CreatedAt) > c.ttl {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry, true
}

func (c *Cache) Store(ctx context.Context, k Key, answer string, src Source) {
	if strings.TrimSpace(answer) == "" {
		return
	}
	entry := &Entry{
		Key:       k.String(),
		Answer:    answer,
		BookID:    src.BookID,
		BookName:  src.BookName,
		Page:      src.Page,
		Mode:      string(k.Mode),
		Branch:    strings.ToLower(strings.TrimSpace(k.Branch)),
		CreatedAt: c.now().UTC(),
	}

	if err := c.store.Put(ctx, entry); err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		c.logger.Warn(module, "Cache write failed", map[string]interface{}{"key": entry.Key, "error": err.Error()})
		return
	}
	metrics.CacheWritesTotal.WithLabelValues("ok").Inc()
}
