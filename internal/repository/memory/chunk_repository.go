package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChunkRepository struct {
	store *Store
}

func (r *ChunkRepository) Exists(ctx context.Context, bookId uuid.UUID, pageNumber int) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.chunks[chunkKey{bookId, pageNumber}]
	return ok, nil
}

func (r *ChunkRepository) InsertIfAbsent(ctx context.Context, chunk *entity.Chunk) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := chunkKey{chunk.BookId, chunk.PageNumber}
	if _, ok := r.store.chunks[key]; ok {
		return false, nil
	}
	if chunk.Id == uuid.Nil {
		chunk.Id = uuid.New()
	}
	chunk.CreatedAt = time.Now()
	cp := *chunk
	r.store.chunks[key] = &cp
	return true, nil
}

func (r *ChunkRepository) FindByOrdinal(ctx context.Context, bookId uuid.UUID, pageNumber int) (*entity.Chunk, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.chunks[chunkKey{bookId, pageNumber}]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *ChunkRepository) CountByBook(ctx context.Context, bookId uuid.UUID) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var n int64
	for k := range r.store.chunks {
		if k.book == bookId {
			n++
		}
	}
	return n, nil
}

func (r *ChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, scope specification.ChunkScope, threshold float64, limit int) ([]*contract.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	var out []*contract.ScoredChunk
	for _, sc := range r.inScope(scope) {
		sim := cosine(embedding, sc.Chunk.EmbeddingValue)
		if sim >= threshold {
			sc.Score = sim
			out = append(out, sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ChunkRepository) FindCandidates(ctx context.Context, scope specification.ChunkScope, offset, limit int) ([]*contract.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 2000
	}
	out := r.inScope(scope)
	if offset >= len(out) {
		return nil, nil
	}
	if offset > 0 {
		out = out[offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// inScope mirrors specification.ChunkScope, ordered by book then page.
func (r *ChunkRepository) inScope(scope specification.ChunkScope) []*contract.ScoredChunk {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	explicit := make(map[uuid.UUID]bool, len(scope.BookIDs))
	for _, id := range scope.BookIDs {
		explicit[id] = true
	}

	var out []*contract.ScoredChunk
	for k, c := range r.store.chunks {
		b, ok := r.store.books[k.book]
		if !ok || b.IsDeleted {
			continue
		}
		if len(explicit) > 0 {
			if !explicit[b.Id] {
				continue
			}
		} else if !b.Status.Searchable() || (scope.Branch != "" && b.Branch != scope.Branch) {
			continue
		}
		cp := *c
		out = append(out, &contract.ScoredChunk{Chunk: &cp, BookName: b.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Chunk, out[j].Chunk
		if a.BookId != b.BookId {
			return a.BookId.String() < b.BookId.String()
		}
		return a.PageNumber < b.PageNumber
	})
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
