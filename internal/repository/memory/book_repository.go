package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type BookRepository struct {
	store *Store
}

func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if book.Id == uuid.Nil {
		book.Id = uuid.New()
	}
	if book.Status == "" {
		book.Status = entity.BookStatusPending
	}
	book.CreatedAt = time.Now()
	cp := *book
	r.store.books[book.Id] = &cp
	return nil
}

func (r *BookRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Book, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// FindAll understands the book specifications used by services.
func (r *BookRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Book, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Book
	for _, b := range r.store.books {
		ok, err := matchBook(b, specs)
		if err != nil {
			return nil, err
		}
		if ok {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matchBook(b *entity.Book, specs []specification.Specification) (bool, error) {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if b.Id != s.ID {
				return false, nil
			}
		case specification.ByBranch:
			if b.Branch != s.Branch {
				return false, nil
			}
		case specification.ByUserID:
			if b.UserId != s.UserID {
				return false, nil
			}
		case specification.ByStatuses:
			found := false
			for _, st := range s.Statuses {
				found = found || string(b.Status) == st
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("memory: unsupported specification %T", spec)
		}
	}
	return true, nil
}

func (r *BookRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update contract.BookStatusUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.books[id]
	if !ok {
		return fmt.Errorf("memory: book %s not found", id)
	}
	b.Status = update.Status
	if update.TotalPages != nil {
		b.TotalPages = *update.TotalPages
	}
	if update.TotalChunks != nil {
		b.TotalChunks = *update.TotalChunks
	}
	if update.ProcessedChunks != nil {
		b.ProcessedChunks = *update.ProcessedChunks
	}
	if update.Errors != nil {
		b.ErrorLog = append([]string(nil), update.Errors...)
	}
	now := time.Now()
	b.UpdatedAt = &now
	return nil
}
