package inmem

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/OmniBazaar/participation/cache"
	"github.com/OmniBazaar/participation/score"
)

type expiringScoreCache struct {
	lru *expirable.LRU[score.Address, score.ParticipationScore]
}

// NewScoreCache returns an in-memory, size-bounded cache.ScoreCache whose
// entries expire ttl after insertion. The engine additionally judges
// freshness from LastCalculated, so expiry here is belt and suspenders plus
// memory bounding.
func NewScoreCache(maxEntries int, ttl time.Duration) cache.ScoreCache {
	return &expiringScoreCache{
		lru: expirable.NewLRU[score.Address, score.ParticipationScore](maxEntries, nil, ttl),
	}
}

func (c *expiringScoreCache) Get(address score.Address) (score.ParticipationScore, bool) {
	return c.lru.Get(address)
}

func (c *expiringScoreCache) Put(s score.ParticipationScore) {
	c.lru.Add(s.Address, s)
}

func (c *expiringScoreCache) Evict(address score.Address) {
	c.lru.Remove(address)
}

func (c *expiringScoreCache) Clear() {
	c.lru.Purge()
}

type staticStakingSource struct {
	lock    sync.RWMutex
	amounts map[score.Address]*big.Int
}

// NewStakingSource returns a qualify.StakingSource backed by a fixed table of
// staked amounts. Addresses absent from the table report zero stake. Intended
// for tests and local demos.
func NewStakingSource(amounts map[score.Address]*big.Int) *staticStakingSource {
	if amounts == nil {
		amounts = map[score.Address]*big.Int{}
	}
	return &staticStakingSource{amounts: amounts}
}

func (s *staticStakingSource) StakingAmount(ctx context.Context, address score.Address) (*big.Int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	amount, ok := s.amounts[address]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(amount), nil
}

func (s *staticStakingSource) SetStake(address score.Address, amount *big.Int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.amounts[address] = new(big.Int).Set(amount)
}

type staticKYCSource struct {
	lock     sync.RWMutex
	approved map[score.Address]bool
}

// NewKYCSource returns a qualify.KYCSource backed by a fixed approval table.
// Addresses absent from the table report unverified.
func NewKYCSource(approved map[score.Address]bool) *staticKYCSource {
	if approved == nil {
		approved = map[score.Address]bool{}
	}
	return &staticKYCSource{approved: approved}
}

func (s *staticKYCSource) KYCStatus(ctx context.Context, address score.Address) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.approved[address], nil
}

func (s *staticKYCSource) SetApproved(address score.Address, approved bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.approved[address] = approved
}
