package score

import (
	"time"

	"github.com/OmniBazaar/participation/decay"
)

// Address is the unique identifier for a marketplace account. Two Address
// values comparing equal under standard Go equality must be considered the
// same account.
type Address string

func (a Address) String() string {
	return string(a)
}

// Score thresholds gating the privileged network roles.
const (
	ValidatorMinScore   = 50.0
	ListingNodeMinScore = 25.0
)

// MaxReferralPoints caps durable referral credit.
const MaxReferralPoints = 10.0

// MaxActivityPoints bounds the four decay-eligible components from above.
const MaxActivityPoints = 5.0

// Total score is clamped to this range after summing components. The current
// component bounds cannot exceed it, but the clamp guards future reweighting.
const (
	MinTotalScore = 0.0
	MaxTotalScore = 100.0
)

// Referrals counts users brought into the network. The count never decreases.
type Referrals struct {
	Count int
}

// Publishing counts marketplace listings published on the account's behalf.
type Publishing struct {
	ListingsPublished int
}

// ForumActivity holds forum engagement counters along with the ledger's
// stored point value for the component.
type ForumActivity struct {
	QuestionsAnswered int
	HelpfulVotes      int
	Points            float64
	LastActivity      time.Time
}

// MarketplaceActivity holds transaction counters along with the ledger's
// stored point value for the component.
type MarketplaceActivity struct {
	BuyTransactions  int
	SellTransactions int
	Points           float64
	LastTransaction  time.Time
}

// CommunityPolicing holds abuse-report counters along with the ledger's
// stored point value for the component.
type CommunityPolicing struct {
	ReportsSubmitted int
	ReportsVerified  int
	Points           float64
	LastReport       time.Time
}

// Reliability holds validation and arbitration counters along with the
// ledger's stored point value, which may be negative.
type Reliability struct {
	SuccessfulValidations int
	FailedValidations     int
	DisputesAsArbitrator  int
	DisputesResolved      int
	Points                float64
	LastActivity          time.Time
}

// ComponentCounters is the raw per-address activity state owned and mutated
// exclusively by the external ledger. This engine only ever reads it; raw
// counters never decrease, only derived points decay.
type ComponentCounters struct {
	Address     Address
	Referrals   Referrals
	Publishing  Publishing
	Forum       ForumActivity
	Marketplace MarketplaceActivity
	Policing    CommunityPolicing
	Reliability Reliability
}

// ComponentPoints is the derived, bounded contribution of each component at
// a particular instant.
type ComponentPoints struct {
	Referrals   float64
	Publishing  float64
	Forum       float64
	Marketplace float64
	Policing    float64
	Reliability float64
}

func (p ComponentPoints) Sum() float64 {
	return p.Referrals + p.Publishing + p.Forum + p.Marketplace + p.Policing + p.Reliability
}

// ParticipationScore is a derived view over ComponentCounters. It is
// recomputed on demand and never independently persisted; cached copies are
// advisory and expire.
type ParticipationScore struct {
	Address                Address
	TotalScore             float64
	Components             ComponentPoints
	QualifiedAsValidator   bool
	QualifiedAsListingNode bool
	LastCalculated         time.Time
	// NextDecayTime is informational: the earliest instant any component
	// loses its next decay increment, or zero when nothing can decay.
	NextDecayTime time.Time
}

// publishingLadder maps listing volume to points. Highest threshold met wins;
// below the first rung the component contributes nothing. The exact rungs are
// part of the network's compatibility surface.
var publishingLadder = []struct {
	threshold int
	points    float64
}{
	{100000, 4},
	{10000, 3},
	{1000, 2},
	{100, 1},
}

// ReferralPoints converts a referral count into durable component points,
// capped at MaxReferralPoints. Referral credit never decays.
func ReferralPoints(count int) float64 {
	if count <= 0 {
		return 0
	}
	if float64(count) > MaxReferralPoints {
		return MaxReferralPoints
	}
	return float64(count)
}

// PublishingPoints converts listing volume into component points via the
// publishing ladder. Publishing credit never decays.
func PublishingPoints(listingsPublished int) float64 {
	for _, rung := range publishingLadder {
		if listingsPublished >= rung.threshold {
			return rung.points
		}
	}
	return 0
}

// Compute derives the participation score for the supplied counters at the
// supplied instant. It is a pure function: identical counters, policies, and
// now always produce an identical score, which is what makes cached results
// reproducible.
func Compute(counters ComponentCounters, policies decay.PolicyTable, now time.Time) ParticipationScore {
	points := ComponentPoints{
		Referrals:   ReferralPoints(counters.Referrals.Count),
		Publishing:  PublishingPoints(counters.Publishing.ListingsPublished),
		Forum:       decay.Apply(counters.Forum.Points, counters.Forum.LastActivity, now, policies.Forum, MaxActivityPoints),
		Marketplace: decay.Apply(counters.Marketplace.Points, counters.Marketplace.LastTransaction, now, policies.Marketplace, MaxActivityPoints),
		Policing:    decay.Apply(counters.Policing.Points, counters.Policing.LastReport, now, policies.Policing, MaxActivityPoints),
		Reliability: decay.Apply(counters.Reliability.Points, counters.Reliability.LastActivity, now, policies.Reliability, MaxActivityPoints),
	}

	total := points.Sum()
	if total < MinTotalScore {
		total = MinTotalScore
	}
	if total > MaxTotalScore {
		total = MaxTotalScore
	}

	return ParticipationScore{
		Address:                counters.Address,
		TotalScore:             total,
		Components:             points,
		QualifiedAsValidator:   total >= ValidatorMinScore,
		QualifiedAsListingNode: total >= ListingNodeMinScore,
		LastCalculated:         now,
		NextDecayTime:          nextDecayTime(counters, policies, now),
	}
}

// Default is the score for an address with no ledger record or an
// unreachable ledger: everything zero, both qualification flags false.
func Default(address Address, now time.Time) ParticipationScore {
	return ParticipationScore{Address: address, LastCalculated: now}
}

func nextDecayTime(counters ComponentCounters, policies decay.PolicyTable, now time.Time) time.Time {
	candidates := []time.Time{
		decay.NextDecayTime(counters.Forum.Points, counters.Forum.LastActivity, now, policies.Forum, MaxActivityPoints),
		decay.NextDecayTime(counters.Marketplace.Points, counters.Marketplace.LastTransaction, now, policies.Marketplace, MaxActivityPoints),
		decay.NextDecayTime(counters.Policing.Points, counters.Policing.LastReport, now, policies.Policing, MaxActivityPoints),
		decay.NextDecayTime(counters.Reliability.Points, counters.Reliability.LastActivity, now, policies.Reliability, MaxActivityPoints),
	}

	var earliest time.Time
	for _, c := range candidates {
		if c.IsZero() {
			continue
		}
		if earliest.IsZero() || c.Before(earliest) {
			earliest = c
		}
	}
	return earliest
}
