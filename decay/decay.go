package decay

import (
	"math"
	"time"
)

const hoursPerDay = 24

// Policy describes how a component's points erode once its holder goes
// inactive. Points are untouched for GracePeriodDays after the last
// qualifying activity, then lose DecayRate for every full DecayPeriodDays
// elapsed beyond the grace period, never dropping below MinPoints.
type Policy struct {
	GracePeriodDays int
	DecayRate       float64
	DecayPeriodDays int
	MinPoints       float64
}

// PolicyTable holds the policy for each decay-eligible component. Referral
// and publishing credit is durable and has no entry here.
type PolicyTable struct {
	Forum       Policy
	Marketplace Policy
	Policing    Policy
	Reliability Policy
}

// DefaultPolicies returns the network's fixed decay schedule. The reliability
// floor is -5 so decay pulls points of either sign toward the floor at the
// same linear rate.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		Forum:       Policy{GracePeriodDays: 30, DecayRate: 0.5, DecayPeriodDays: 30, MinPoints: 0},
		Marketplace: Policy{GracePeriodDays: 30, DecayRate: 0.5, DecayPeriodDays: 30, MinPoints: 0},
		Policing:    Policy{GracePeriodDays: 60, DecayRate: 0.25, DecayPeriodDays: 30, MinPoints: 0},
		Reliability: Policy{GracePeriodDays: 90, DecayRate: 0.25, DecayPeriodDays: 30, MinPoints: -5},
	}
}

// Apply computes the currently effective point value for a component given
// the raw stored points and the time of the last qualifying activity.
//
// Decay is evaluated from elapsed wall-clock time at read time rather than by
// a scheduled job, so repeated calls with identical inputs and an identical
// now yield identical output. A zero lastActivity or zero points short
// circuits to the stored value unchanged, and a non-positive DecayPeriodDays
// means the points never step down, only clamp.
func Apply(points float64, lastActivity time.Time, now time.Time, policy Policy, maxPoints float64) float64 {
	if lastActivity.IsZero() || points == 0 {
		return points
	}

	daysSinceActivity := now.Sub(lastActivity).Hours() / hoursPerDay
	if daysSinceActivity <= float64(policy.GracePeriodDays) || policy.DecayPeriodDays <= 0 {
		return clamp(points, policy.MinPoints, maxPoints)
	}

	decayPeriods := math.Floor((daysSinceActivity - float64(policy.GracePeriodDays)) / float64(policy.DecayPeriodDays))
	decayed := points - decayPeriods*policy.DecayRate
	return clamp(decayed, policy.MinPoints, maxPoints)
}

// NextDecayTime reports the earliest instant at which the component would
// lose its next DecayRate increment. It returns the zero time when no further
// decay can occur: no recorded activity, no points, or the effective value
// already resting on the policy floor.
func NextDecayTime(points float64, lastActivity time.Time, now time.Time, policy Policy, maxPoints float64) time.Time {
	if lastActivity.IsZero() || points == 0 || policy.DecayPeriodDays <= 0 {
		return time.Time{}
	}
	if Apply(points, lastActivity, now, policy, maxPoints) <= policy.MinPoints {
		return time.Time{}
	}

	daysSinceActivity := now.Sub(lastActivity).Hours() / hoursPerDay
	graceDays := float64(policy.GracePeriodDays)
	periodDays := float64(policy.DecayPeriodDays)

	elapsedPeriods := 0.0
	if daysSinceActivity > graceDays {
		elapsedPeriods = math.Floor((daysSinceActivity - graceDays) / periodDays)
	}
	nextDays := graceDays + (elapsedPeriods+1)*periodDays
	return lastActivity.Add(time.Duration(nextDays * hoursPerDay * float64(time.Hour)))
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
