package memory

import (
	"context"
	"sort"
	"sync"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/domain/user"
)

type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]user.User
	nextID int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]user.User, 8), nextID: 1}
}

func (r *UserRepository) Seed(item user.User) user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		item.ID = r.nextID
		r.nextID++
	} else if item.ID >= r.nextID {
		r.nextID = item.ID + 1
	}
	r.users[item.ID] = item
	return item
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.users[id]
	if !ok {
		return nil, crerr.Newf("user %d not found", id)
	}
	cloned := item
	return &cloned, nil
}

func (r *UserRepository) ListTelegramVerified(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.users))
	for _, item := range r.users {
		if item.TelegramVerified {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
