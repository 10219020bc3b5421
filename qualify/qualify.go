package qualify

import (
	"context"
	"fmt"
	"math/big"

	"github.com/OmniBazaar/participation/score"
)

// DefaultMinValidatorStake is the fixed minimum stake a validator candidate
// must hold, in the marketplace's native denomination.
var DefaultMinValidatorStake = big.NewInt(1_000_000)

// StakingSource reports how much an address has staked. Implementations wrap
// an external authority such as a staking contract; this engine only combines
// their answers with the score.
type StakingSource interface {
	StakingAmount(ctx context.Context, address score.Address) (*big.Int, error)
}

// KYCSource reports whether an address has passed identity verification.
type KYCSource interface {
	KYCStatus(ctx context.Context, address score.Address) (bool, error)
}

// UnimplementedStakingSource reports zero stake for every address. It stands
// in wherever no staking authority is wired up yet.
type UnimplementedStakingSource struct{}

func (UnimplementedStakingSource) StakingAmount(ctx context.Context, address score.Address) (*big.Int, error) {
	return new(big.Int), nil
}

// UnimplementedKYCSource reports unverified for every address.
type UnimplementedKYCSource struct{}

func (UnimplementedKYCSource) KYCStatus(ctx context.Context, address score.Address) (bool, error) {
	return false, nil
}

// ListingNodeResult is the outcome of a listing-node qualification check,
// a pure threshold comparison.
type ListingNodeResult struct {
	Qualified   bool
	Score       float64
	MinRequired float64
}

// ValidatorRequirements itemizes the validator criteria so a negative answer
// is explainable. Failures carries diagnostics from collaborator errors; a
// failed external lookup counts as the requirement not being met, never as a
// crash.
type ValidatorRequirements struct {
	MinScore      float64
	ScoreMet      bool
	HasKYC        bool
	StakingAmount *big.Int
	MinStake      *big.Int
	StakeMet      bool
	Failures      []string
}

// ValidatorResult is the outcome of a validator qualification check.
type ValidatorResult struct {
	Qualified    bool
	Score        float64
	Requirements ValidatorRequirements
}

// EvaluateListingNode applies the listing-node threshold to a computed score.
func EvaluateListingNode(s score.ParticipationScore) ListingNodeResult {
	return ListingNodeResult{
		Qualified:   s.QualifiedAsListingNode,
		Score:       s.TotalScore,
		MinRequired: score.ListingNodeMinScore,
	}
}

// EvaluateValidator combines the computed score with the answers from the
// staking and KYC collaborators. Either collaborator erroring means its
// requirement is not met; the cause is preserved in Requirements.Failures.
func EvaluateValidator(s score.ParticipationScore, stake *big.Int, stakeErr error, hasKYC bool, kycErr error, minStake *big.Int) ValidatorResult {
	if minStake == nil {
		minStake = DefaultMinValidatorStake
	}

	req := ValidatorRequirements{
		MinScore: score.ValidatorMinScore,
		ScoreMet: s.QualifiedAsValidator,
		MinStake: minStake,
	}

	if stakeErr != nil {
		req.StakingAmount = new(big.Int)
		req.Failures = append(req.Failures, fmt.Sprintf("staking lookup failed: %s", stakeErr))
	} else {
		if stake == nil {
			stake = new(big.Int)
		}
		req.StakingAmount = stake
		req.StakeMet = stake.Cmp(minStake) >= 0
	}

	if kycErr != nil {
		req.Failures = append(req.Failures, fmt.Sprintf("KYC lookup failed: %s", kycErr))
	} else {
		req.HasKYC = hasKYC
	}

	return ValidatorResult{
		Qualified:    req.ScoreMet && req.HasKYC && req.StakeMet,
		Score:        s.TotalScore,
		Requirements: req,
	}
}
