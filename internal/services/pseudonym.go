package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pseudonymHashKey = "incident-server:pseudonyms"

var pseudonymWords = []string{
	"amber", "birch", "cedar", "comet", "coral", "delta", "ember", "falcon",
	"fern", "harbor", "heron", "indigo", "juniper", "lark", "maple", "meadow",
	"nova", "onyx", "orchid", "pebble", "quartz", "raven", "river", "sage",
	"sparrow", "summit", "thistle", "tundra", "willow", "zephyr",
}

// Pseudonyms hands out one stable display name per author id. Names live for
// the process lifetime; with a Redis client they also survive restarts and are
// shared between replicas.
type Pseudonyms struct {
	mu    sync.Mutex
	names map[string]string
	// provisional holds names handed out while Redis was unreachable. They
	// are offered to Redis again on the next lookup.
	provisional map[string]string
	redis       *redis.Client
	logger      *zap.SugaredLogger
}

// NewPseudonyms creates a registry. rdb may be nil.
func NewPseudonyms(rdb *redis.Client, logger *zap.SugaredLogger) *Pseudonyms {
	return &Pseudonyms{
		names:       make(map[string]string),
		provisional: make(map[string]string),
		redis:       rdb,
		logger:      logger,
	}
}

func newPseudonym() string {
	word := pseudonymWords[rand.Intn(len(pseudonymWords))]
	return fmt.Sprintf("%s-%d", word, 1000+rand.Intn(9000))
}

// For returns the pseudonym of authorID, generating it on first sight. Redis
// is consulted without holding the registry lock.
func (p *Pseudonyms) For(ctx context.Context, authorID string) string {
	p.mu.Lock()
	if name, ok := p.names[authorID]; ok {
		p.mu.Unlock()
		return name
	}
	candidate, ok := p.provisional[authorID]
	if !ok {
		candidate = newPseudonym()
	}
	p.mu.Unlock()

	if p.redis == nil {
		return p.settle(authorID, candidate)
	}

	stored, err := p.claim(ctx, authorID, candidate)
	if err != nil {
		p.logger.Warnw("Pseudonym persistence unavailable", "error", err)
		p.mu.Lock()
		defer p.mu.Unlock()
		if name, ok := p.names[authorID]; ok {
			return name
		}
		if name, ok := p.provisional[authorID]; ok {
			return name
		}
		p.provisional[authorID] = candidate
		return candidate
	}
	return p.settle(authorID, stored)
}

// settle records name for authorID unless another caller got there first.
func (p *Pseudonyms) settle(authorID, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.names[authorID]; ok {
		return existing
	}
	delete(p.provisional, authorID)
	p.names[authorID] = name
	return name
}

// claim stores candidate unless another process already named authorID, and
// returns whichever name won.
func (p *Pseudonyms) claim(ctx context.Context, authorID, candidate string) (string, error) {
	if err := p.redis.HSetNX(ctx, pseudonymHashKey, authorID, candidate).Err(); err != nil {
		return "", fmt.Errorf("claim pseudonym: %w", err)
	}
	stored, err := p.redis.HGet(ctx, pseudonymHashKey, authorID).Result()
	if err != nil {
		return "", fmt.Errorf("read pseudonym: %w", err)
	}
	return stored, nil
}
