package events

import (
	"context"
	"time"

	"eventtts/config"
	"eventtts/mq"
	"eventtts/rdx"
	"eventtts/repository"
	"eventtts/taxonomy"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 6
	relatedLimit    = 3
)

type Service struct {
	events   repository.EventStore
	users    repository.UserStore
	orders   repository.OrderStore
	taxonomy *taxonomy.Resolver
	cache    rdx.Cache
	cacheTTL time.Duration
	live     mq.Publisher
	policy   string
	log      *zap.Logger
}

type Options struct {
	Stores         repository.Stores
	Taxonomy       *taxonomy.Resolver
	Cache          rdx.Cache
	CacheTTL       time.Duration
	Live           mq.Publisher
	SubEventPolicy string
	Logger         *zap.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		events:   opts.Stores.Events,
		users:    opts.Stores.Users,
		orders:   opts.Stores.Orders,
		taxonomy: opts.Taxonomy,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		live:     opts.Live,
		policy:   opts.SubEventPolicy,
		log:      opts.Logger,
	}
	if s.taxonomy == nil {
		s.taxonomy = taxonomy.NewResolver(opts.Stores.Taxonomy)
	}
	if s.cache == nil {
		s.cache = rdx.Noop{}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	if s.policy == "" {
		s.policy = config.PolicyCascade
	}
	if s.log == nil {
		s.log = zap.L()
	}
	return s
}

// Invalidate drops the cached detail views of ids.
func (s *Service) Invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rdx.EventKey(id.Hex())
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
