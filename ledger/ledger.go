package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/OmniBazaar/participation/score"
)

// ErrUnavailable indicates the ledger could not be reached or answered with a
// failure status. Read paths recover from it with a default zero score; write
// paths surface it to the caller.
var ErrUnavailable = errors.New("activity ledger unavailable")

// Component names one of the six contributors to the total score. The values
// double as the wire vocabulary for activity reports.
type Component string

const (
	ComponentReferrals   Component = "referrals"
	ComponentPublishing  Component = "publishing"
	ComponentForum       Component = "forumActivity"
	ComponentMarketplace Component = "marketplaceActivity"
	ComponentPolicing    Component = "communityPolicing"
	ComponentReliability Component = "reliability"
)

// Ledger is the external authoritative source of raw activity counters. It is
// the single writer of counters; this engine is a read-side transform plus an
// advisory cache in front of it.
//
// All operations take a context and implementations must honor its deadline.
// Implementations must be safe for concurrent use across addresses.
type Ledger interface {
	// Snapshot retrieves the current raw counters for an address. If error
	// != nil, whatever counters value is returned must be discarded.
	Snapshot(ctx context.Context, address score.Address) (score.ComponentCounters, error)
	// Report appends an observed activity event to the ledger and returns
	// the updated counters for the affected address.
	Report(ctx context.Context, report ActivityReport) (score.ComponentCounters, error)
	// Leaderboard returns up to limit addresses ordered by descending score
	// from the ledger's own aggregate view, so that all addresses are
	// compared at one consistent instant.
	Leaderboard(ctx context.Context, limit int) ([]Standing, error)
}

// Standing is one row of the ledger's aggregate score view.
type Standing struct {
	Address score.Address
	Score   float64
}

// Event is one observed activity occurrence, tagged by the component it
// credits. The closed set of implementations below keeps the reporter/ledger
// contract statically checkable instead of shipping loosely-typed payloads.
type Event interface {
	Component() Component
	activityEvent()
}

// ReferralEvent records that the account referred a new user.
type ReferralEvent struct {
	NewUser score.Address
}

// PublishingEvent records a marketplace listing published on the account's
// behalf.
type PublishingEvent struct {
	ListingHash string
}

type ForumActivityKind string

const (
	ForumQuestionAnswered ForumActivityKind = "question_answered"
	ForumHelpfulVote      ForumActivityKind = "helpful_vote"
)

// ForumEvent records a single unit of forum engagement.
type ForumEvent struct {
	Kind ForumActivityKind
}

type MarketplaceActivityKind string

const (
	MarketplaceBuy  MarketplaceActivityKind = "buy"
	MarketplaceSell MarketplaceActivityKind = "sell"
)

// MarketplaceEvent records a completed marketplace transaction. Amount is a
// decimal string in the marketplace's native denomination.
type MarketplaceEvent struct {
	Kind   MarketplaceActivityKind
	Amount string
}

type PolicingActivityKind string

const (
	PolicingReportSubmitted PolicingActivityKind = "report_submitted"
	PolicingReportVerified  PolicingActivityKind = "report_verified"
)

// PolicingEvent records a community-policing report against another account.
type PolicingEvent struct {
	Kind   PolicingActivityKind
	Target score.Address
}

type ReliabilityActivityKind string

const (
	ReliabilityValidationSuccess ReliabilityActivityKind = "validation_success"
	ReliabilityValidationFailure ReliabilityActivityKind = "validation_failure"
	ReliabilityDisputeArbitrated ReliabilityActivityKind = "dispute_arbitrated"
	ReliabilityDisputeResolved   ReliabilityActivityKind = "dispute_resolved"
)

// ReliabilityEvent records a validation or arbitration outcome.
type ReliabilityEvent struct {
	Kind ReliabilityActivityKind
}

func (ReferralEvent) Component() Component    { return ComponentReferrals }
func (PublishingEvent) Component() Component  { return ComponentPublishing }
func (ForumEvent) Component() Component       { return ComponentForum }
func (MarketplaceEvent) Component() Component { return ComponentMarketplace }
func (PolicingEvent) Component() Component    { return ComponentPolicing }
func (ReliabilityEvent) Component() Component { return ComponentReliability }

func (ReferralEvent) activityEvent()    {}
func (PublishingEvent) activityEvent()  {}
func (ForumEvent) activityEvent()       {}
func (MarketplaceEvent) activityEvent() {}
func (PolicingEvent) activityEvent()    {}
func (ReliabilityEvent) activityEvent() {}

// ActivityReport is the envelope pushed to the ledger for one observed event.
// The ID lets the ledger deduplicate retried reports.
type ActivityReport struct {
	ID        uuid.UUID
	Address   score.Address
	Event     Event
	Timestamp time.Time
}

// NewActivityReport stamps an event with a fresh report ID and the observed
// timestamp.
func NewActivityReport(address score.Address, event Event, timestamp time.Time) (ActivityReport, error) {
	if event == nil {
		return ActivityReport{}, errors.New("activity report requires an event")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return ActivityReport{}, err
	}
	return ActivityReport{ID: id, Address: address, Event: event, Timestamp: timestamp}, nil
}
