package participation_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/score"
)

type testLedger struct {
	counters  map[score.Address]score.ComponentCounters
	standings []ledger.Standing
	reports   []ledger.ActivityReport
	fetches   int
	actions   map[any]any
}

func (l *testLedger) Snapshot(ctx context.Context, address score.Address) (score.ComponentCounters, error) {
	l.fetches++
	action, ok := l.actions["Snapshot"]
	if ok {
		typed, ok := action.(struct{ err error })
		if !ok {
			return score.ComponentCounters{}, errors.New("Snapshot action must be of type struct {err error}")
		}
		return score.ComponentCounters{}, typed.err
	}
	counters, ok := l.counters[address]
	if !ok {
		return score.ComponentCounters{}, fmt.Errorf("No ledger record for %s", address)
	}
	return counters, nil
}

func (l *testLedger) Report(ctx context.Context, report ledger.ActivityReport) (score.ComponentCounters, error) {
	action, ok := l.actions["Report"]
	if ok {
		typed, ok := action.(struct{ err error })
		if !ok {
			return score.ComponentCounters{}, errors.New("Report action must be of type struct {err error}")
		}
		return score.ComponentCounters{}, typed.err
	}

	l.reports = append(l.reports, report)
	counters := l.counters[report.Address]
	counters.Address = report.Address
	switch event := report.Event.(type) {
	case ledger.ReferralEvent:
		counters.Referrals.Count++
	case ledger.PublishingEvent:
		counters.Publishing.ListingsPublished++
	case ledger.ForumEvent:
		if event.Kind == ledger.ForumQuestionAnswered {
			counters.Forum.QuestionsAnswered++
		} else {
			counters.Forum.HelpfulVotes++
		}
		counters.Forum.LastActivity = report.Timestamp
	case ledger.MarketplaceEvent:
		if event.Kind == ledger.MarketplaceBuy {
			counters.Marketplace.BuyTransactions++
		} else {
			counters.Marketplace.SellTransactions++
		}
		counters.Marketplace.LastTransaction = report.Timestamp
	case ledger.PolicingEvent:
		counters.Policing.ReportsSubmitted++
		counters.Policing.LastReport = report.Timestamp
	case ledger.ReliabilityEvent:
		counters.Reliability.SuccessfulValidations++
		counters.Reliability.LastActivity = report.Timestamp
	}
	l.counters[report.Address] = counters
	return counters, nil
}

func (l *testLedger) Leaderboard(ctx context.Context, limit int) ([]ledger.Standing, error) {
	action, ok := l.actions["Leaderboard"]
	if ok {
		typed, ok := action.(struct {
			standings []ledger.Standing
			err       error
		})
		if !ok {
			return nil, errors.New("Leaderboard action must be of type struct {standings []ledger.Standing; err error}")
		}
		return typed.standings, typed.err
	}
	return l.standings, nil
}

type testCache struct {
	entries map[score.Address]score.ParticipationScore
	puts    int
	evicts  int
}

func (c *testCache) Get(address score.Address) (score.ParticipationScore, bool) {
	s, ok := c.entries[address]
	return s, ok
}

func (c *testCache) Put(s score.ParticipationScore) {
	c.puts++
	c.entries[s.Address] = s
}

func (c *testCache) Evict(address score.Address) {
	c.evicts++
	delete(c.entries, address)
}

func (c *testCache) Clear() {
	c.entries = map[score.Address]score.ParticipationScore{}
}

type testStakingSource struct {
	amounts map[score.Address]*big.Int
	err     error
}

func (s *testStakingSource) StakingAmount(ctx context.Context, address score.Address) (*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	amount, ok := s.amounts[address]
	if !ok {
		return new(big.Int), nil
	}
	return amount, nil
}

type testKYCSource struct {
	approved map[score.Address]bool
	err      error
}

func (s *testKYCSource) KYCStatus(ctx context.Context, address score.Address) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.approved[address], nil
}
