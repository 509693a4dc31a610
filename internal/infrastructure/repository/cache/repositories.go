package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/user"
	basecache "github.com/matchwatch/livealert/internal/platform/cache"
)

// RuleRepository caches rule reads so each poll cycle does not hit the
// database for definitions that change rarely. Bookkeeping writes pass
// through and invalidate.
type RuleRepository struct {
	next  rule.Repository
	cache *basecache.Store
}

func NewRuleRepository(next rule.Repository, cache *basecache.Store) *RuleRepository {
	return &RuleRepository{next: next, cache: cache}
}

const ruleListActiveKey = "rule:list:active"

func (r *RuleRepository) ListActive(ctx context.Context) ([]rule.Rule, error) {
	v, err := r.cache.GetOrLoad(ctx, ruleListActiveKey, func(ctx context.Context) (any, error) {
		items, err := r.next.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return append([]rule.Rule(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]rule.Rule)
	return append([]rule.Rule(nil), items...), nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*rule.Rule, error) {
	v, err := r.cache.GetOrLoad(ctx, ruleByIDKey(id), func(ctx context.Context) (any, error) {
		item, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return *item, nil
	})
	if err != nil {
		return nil, err
	}

	item, _ := v.(rule.Rule)
	return &item, nil
}

func (r *RuleRepository) TouchChecked(ctx context.Context, ruleID int64, at time.Time, matchDesc string) error {
	if err := r.next.TouchChecked(ctx, ruleID, at, matchDesc); err != nil {
		return err
	}
	r.cache.Delete(ctx, ruleByIDKey(ruleID))
	return nil
}

func (r *RuleRepository) TouchAlerted(ctx context.Context, ruleID int64, at time.Time, alertDesc string) error {
	if err := r.next.TouchAlerted(ctx, ruleID, at, alertDesc); err != nil {
		return err
	}
	r.cache.Delete(ctx, ruleByIDKey(ruleID))
	return nil
}

func ruleByIDKey(id int64) string {
	return "rule:id:" + strconv.FormatInt(id, 10)
}

type UserRepository struct {
	next  user.Repository
	cache *basecache.Store
}

func NewUserRepository(next user.Repository, cache *basecache.Store) *UserRepository {
	return &UserRepository{next: next, cache: cache}
}

const userListVerifiedKey = "user:list:telegram-verified"

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	key := "user:id:" + strconv.FormatInt(id, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return *item, nil
	})
	if err != nil {
		return nil, err
	}

	item, _ := v.(user.User)
	return &item, nil
}

func (r *UserRepository) ListTelegramVerified(ctx context.Context) ([]user.User, error) {
	v, err := r.cache.GetOrLoad(ctx, userListVerifiedKey, func(ctx context.Context) (any, error) {
		items, err := r.next.ListTelegramVerified(ctx)
		if err != nil {
			return nil, err
		}
		return append([]user.User(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]user.User)
	return append([]user.User(nil), items...), nil
}
