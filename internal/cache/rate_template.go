// Package cache holds read-through caches in front of repositories whose data
// changes rarely compared to how often billing reads it.
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"rentbill-backend/internal/domain"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

// RateTemplateCache decorates a RateTemplateRepository with a TTL cache keyed
// by template id. An edit made elsewhere becomes visible once the entry expires
// or is invalidated.
type RateTemplateCache struct {
	next  repository.RateTemplateRepository
	store *gocache.Cache
}

func NewRateTemplateCache(next repository.RateTemplateRepository, ttl time.Duration) *RateTemplateCache {
	return &RateTemplateCache{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

func templateKey(id int32) string {
	return fmt.Sprintf("rate_template:%d", id)
}

func (c *RateTemplateCache) GetByID(ctx context.Context, id int32) (*domain.RateTemplate, error) {
	if v, ok := c.store.Get(templateKey(id)); ok {
		logger.Debug("Rate template cache hit", "templateID", id)
		t := v.(domain.RateTemplate)
		return &t, nil
	}

	t, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(templateKey(id), *t)
	return t, nil
}

// Invalidate drops a template, e.g. after it was edited.
func (c *RateTemplateCache) Invalidate(id int32) {
	c.store.Delete(templateKey(id))
}

var _ repository.RateTemplateRepository = (*RateTemplateCache)(nil)
