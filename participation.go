package participation

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/OmniBazaar/participation/cache"
	"github.com/OmniBazaar/participation/decay"
	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/qualify"
	"github.com/OmniBazaar/participation/score"
)

// DefaultCacheTTL is how long a computed score stays fresh. A stale hit only
// delays visibility of new activity by up to this long.
const DefaultCacheTTL = 5 * time.Minute

// Engine is the read-side participation scoring pipeline: a stateless
// transform over ledger state plus an advisory per-address cache. It holds no
// ledger of its own and performs no background work; decay is evaluated from
// wall-clock time at read time.
type Engine struct {
	ledger   ledger.Ledger
	cache    cache.ScoreCache
	staking  qualify.StakingSource
	kyc      qualify.KYCSource
	policies decay.PolicyTable
	cacheTTL time.Duration
	minStake *big.Int
	log      *zap.SugaredLogger
}

// NewEngine wires an engine from its collaborators. A nil staking or KYC
// source is replaced with the unimplemented variant so qualification checks
// degrade to "requirement not met" rather than failing. A non-positive
// cacheTTL falls back to DefaultCacheTTL and a nil minStake to the network
// default.
func NewEngine(
	activityLedger ledger.Ledger,
	scoreCache cache.ScoreCache,
	staking qualify.StakingSource,
	kyc qualify.KYCSource,
	policies decay.PolicyTable,
	cacheTTL time.Duration,
	minStake *big.Int,
	log *zap.SugaredLogger,
) (*Engine, error) {
	if activityLedger == nil {
		return nil, errors.New("engine requires a ledger")
	}
	if scoreCache == nil {
		return nil, errors.New("engine requires a score cache")
	}
	if log == nil {
		return nil, errors.New("engine requires a logger")
	}
	if staking == nil {
		staking = qualify.UnimplementedStakingSource{}
	}
	if kyc == nil {
		kyc = qualify.UnimplementedKYCSource{}
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Engine{
		ledger:   activityLedger,
		cache:    scoreCache,
		staking:  staking,
		kyc:      kyc,
		policies: policies,
		cacheTTL: cacheTTL,
		minStake: minStake,
		log:      log,
	}, nil
}

// Score returns the participation score for an address, serving from the
// cache when the entry is younger than the TTL and recomputing from a fresh
// ledger snapshot otherwise.
//
// A ledger failure is recovered locally as the default zero score and never
// surfaced. Callers needing certainty, such as validator registration, must
// re-query rather than trust a defaulted score.
func (e *Engine) Score(ctx context.Context, address score.Address) score.ParticipationScore {
	now := time.Now()
	if cached, ok := e.cache.Get(address); ok {
		if now.Sub(cached.LastCalculated) <= e.cacheTTL {
			e.log.Debugf("Serving cached score for %s calculated at %s", address, cached.LastCalculated)
			return cached
		}
		e.cache.Evict(address)
	}

	counters, err := e.ledger.Snapshot(ctx, address)
	if err != nil {
		e.log.Warnf("Failed to fetch activity snapshot for %s so defaulting to zero score: %s", address, err)
		return score.Default(address, now)
	}

	computed := score.Compute(counters, e.policies, now)
	e.cache.Put(computed)
	return computed
}

// ReportActivity pushes an observed event to the ledger and evicts the
// address's cache entry so the next read recomputes. On success it returns
// the score derived from the ledger's updated snapshot.
//
// Unlike reads, a ledger failure here is surfaced: silently dropping earned
// activity would corrupt the address's score.
func (e *Engine) ReportActivity(ctx context.Context, address score.Address, event ledger.Event) (score.ParticipationScore, error) {
	report, err := ledger.NewActivityReport(address, event, time.Now())
	if err != nil {
		return score.ParticipationScore{}, err
	}

	counters, err := e.ledger.Report(ctx, report)
	if err != nil {
		return score.ParticipationScore{}, err
	}

	e.cache.Evict(address)
	return score.Compute(counters, e.policies, time.Now()), nil
}

// CheckListingNodeQualification applies the listing-node threshold to the
// address's current score.
func (e *Engine) CheckListingNodeQualification(ctx context.Context, address score.Address) qualify.ListingNodeResult {
	return qualify.EvaluateListingNode(e.Score(ctx, address))
}

// CheckValidatorQualification combines the address's score with the staking
// and KYC collaborators. A failed collaborator lookup means that requirement
// is not met; the cause is preserved in the result for diagnostics.
func (e *Engine) CheckValidatorQualification(ctx context.Context, address score.Address) qualify.ValidatorResult {
	s := e.Score(ctx, address)

	stake, stakeErr := e.staking.StakingAmount(ctx, address)
	if stakeErr != nil {
		e.log.Warnf("Staking lookup for %s failed: %s", address, stakeErr)
	}

	hasKYC, kycErr := e.kyc.KYCStatus(ctx, address)
	if kycErr != nil {
		e.log.Warnf("KYC lookup for %s failed: %s", address, kycErr)
	}

	return qualify.EvaluateValidator(s, stake, stakeErr, hasKYC, kycErr, e.minStake)
}

// LeaderboardEntry is one ranked row of the network-wide score view.
type LeaderboardEntry struct {
	Rank          int
	Address       score.Address
	Score         float64
	IsValidator   bool
	IsListingNode bool
}

// Leaderboard ranks addresses by descending score from the ledger's own
// aggregate view rather than the local cache, since all addresses must be
// compared at one consistent instant. An unreachable ledger yields an empty
// board.
func (e *Engine) Leaderboard(ctx context.Context, limit int) []LeaderboardEntry {
	standings, err := e.ledger.Leaderboard(ctx, limit)
	if err != nil {
		e.log.Warnf("Failed to fetch leaderboard so returning empty board: %s", err)
		return []LeaderboardEntry{}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})

	entries := make([]LeaderboardEntry, 0, len(standings))
	for i, standing := range standings {
		if limit > 0 && i >= limit {
			break
		}
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			Address:       standing.Address,
			Score:         standing.Score,
			IsValidator:   standing.Score >= score.ValidatorMinScore,
			IsListingNode: standing.Score >= score.ListingNodeMinScore,
		})
	}
	return entries
}

// InvalidateAddress drops any cached score for the address, forcing the next
// read to recompute from a fresh ledger snapshot.
func (e *Engine) InvalidateAddress(address score.Address) {
	e.cache.Evict(address)
}

// ClearCache drops every cached score.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}
