package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/score"
)

type httpLedger struct {
	endpoint string
	client   *http.Client
}

// NewLedger returns a ledger.Ledger speaking the activity ledger's HTTP JSON
// protocol: GET {endpoint}/score/{address}, POST {endpoint}/update, and
// GET {endpoint}/leaderboard?limit=N. The timeout bounds every request in
// addition to any caller-supplied context deadline. Failures are reported as
// ledger.ErrUnavailable; deciding how to recover is the caller's business.
func NewLedger(endpoint string, timeout time.Duration) ledger.Ledger {
	return &httpLedger{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Wire representations. Timestamps travel as Unix milliseconds; zero means
// no recorded activity and maps to the zero time.
type scoreSnapshot struct {
	Address   string `json:"address"`
	Referrals struct {
		Count int `json:"count"`
	} `json:"referrals"`
	Publishing struct {
		ListingsPublished int `json:"listingsPublished"`
	} `json:"publishing"`
	ForumActivity struct {
		QuestionsAnswered int     `json:"questionsAnswered"`
		HelpfulVotes      int     `json:"helpfulVotes"`
		Points            float64 `json:"points"`
		LastActivityDate  int64   `json:"lastActivityDate"`
	} `json:"forumActivity"`
	MarketplaceActivity struct {
		BuyTransactions     int     `json:"buyTransactions"`
		SellTransactions    int     `json:"sellTransactions"`
		Points              float64 `json:"points"`
		LastTransactionDate int64   `json:"lastTransactionDate"`
	} `json:"marketplaceActivity"`
	CommunityPolicing struct {
		ReportsSubmitted int     `json:"reportsSubmitted"`
		ReportsVerified  int     `json:"reportsVerified"`
		Points           float64 `json:"points"`
		LastReportDate   int64   `json:"lastReportDate"`
	} `json:"communityPolicing"`
	Reliability struct {
		SuccessfulValidations int     `json:"successfulValidations"`
		FailedValidations     int     `json:"failedValidations"`
		DisputesAsArbitrator  int     `json:"disputesAsArbitrator"`
		DisputesResolved      int     `json:"disputesResolved"`
		Points                float64 `json:"points"`
		LastActivityDate      int64   `json:"lastActivityDate"`
	} `json:"reliability"`
}

type updateRequest struct {
	ID        string           `json:"id"`
	Address   string           `json:"address"`
	Component ledger.Component `json:"component"`
	Activity  any              `json:"activity"`
	Timestamp int64            `json:"timestamp"`
}

type standingRow struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

func (l *httpLedger) Snapshot(ctx context.Context, address score.Address) (score.ComponentCounters, error) {
	reqURL := fmt.Sprintf("%s/score/%s", l.endpoint, url.PathEscape(string(address)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return score.ComponentCounters{}, errors.Wrapf(err, "failed to build score request for %s", address)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return score.ComponentCounters{}, errors.Wrapf(ledger.ErrUnavailable, "score fetch for %s: %s", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return score.ComponentCounters{}, errors.Wrapf(ledger.ErrUnavailable, "score fetch for %s returned status %d", address, resp.StatusCode)
	}

	var snapshot scoreSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return score.ComponentCounters{}, errors.Wrapf(err, "failed to decode score response for %s", address)
	}
	return toCounters(address, snapshot), nil
}

func (l *httpLedger) Report(ctx context.Context, report ledger.ActivityReport) (score.ComponentCounters, error) {
	payload, err := activityPayload(report.Event)
	if err != nil {
		return score.ComponentCounters{}, err
	}

	body, err := json.Marshal(updateRequest{
		ID:        report.ID.String(),
		Address:   string(report.Address),
		Component: report.Event.Component(),
		Activity:  payload,
		Timestamp: report.Timestamp.UnixMilli(),
	})
	if err != nil {
		return score.ComponentCounters{}, errors.Wrap(err, "failed to serialize activity report")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint+"/update", bytes.NewReader(body))
	if err != nil {
		return score.ComponentCounters{}, errors.Wrap(err, "failed to build update request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return score.ComponentCounters{}, errors.Wrapf(ledger.ErrUnavailable, "activity report %s: %s", report.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return score.ComponentCounters{}, errors.Wrapf(ledger.ErrUnavailable, "activity report %s returned status %d", report.ID, resp.StatusCode)
	}

	var snapshot scoreSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return score.ComponentCounters{}, errors.Wrapf(err, "failed to decode update response for %s", report.Address)
	}
	return toCounters(report.Address, snapshot), nil
}

func (l *httpLedger) Leaderboard(ctx context.Context, limit int) ([]ledger.Standing, error) {
	reqURL := fmt.Sprintf("%s/leaderboard?limit=%d", l.endpoint, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build leaderboard request")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ledger.ErrUnavailable, "leaderboard fetch: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ledger.ErrUnavailable, "leaderboard fetch returned status %d", resp.StatusCode)
	}

	var rows []standingRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, errors.Wrap(err, "failed to decode leaderboard response")
	}

	standings := make([]ledger.Standing, len(rows))
	for i, row := range rows {
		standings[i] = ledger.Standing{Address: score.Address(row.Address), Score: row.Score}
	}
	return standings, nil
}

func activityPayload(event ledger.Event) (any, error) {
	switch e := event.(type) {
	case ledger.ReferralEvent:
		return map[string]string{"newUser": string(e.NewUser)}, nil
	case ledger.PublishingEvent:
		return map[string]string{"listingHash": e.ListingHash}, nil
	case ledger.ForumEvent:
		return map[string]string{"kind": string(e.Kind)}, nil
	case ledger.MarketplaceEvent:
		return map[string]string{"kind": string(e.Kind), "amount": e.Amount}, nil
	case ledger.PolicingEvent:
		return map[string]string{"kind": string(e.Kind), "target": string(e.Target)}, nil
	case ledger.ReliabilityEvent:
		return map[string]string{"kind": string(e.Kind)}, nil
	default:
		return nil, fmt.Errorf("Unrecognized activity event type %T", event)
	}
}

func toCounters(address score.Address, snapshot scoreSnapshot) score.ComponentCounters {
	return score.ComponentCounters{
		Address: address,
		Referrals: score.Referrals{
			Count: snapshot.Referrals.Count,
		},
		Publishing: score.Publishing{
			ListingsPublished: snapshot.Publishing.ListingsPublished,
		},
		Forum: score.ForumActivity{
			QuestionsAnswered: snapshot.ForumActivity.QuestionsAnswered,
			HelpfulVotes:      snapshot.ForumActivity.HelpfulVotes,
			Points:            snapshot.ForumActivity.Points,
			LastActivity:      fromUnixMilli(snapshot.ForumActivity.LastActivityDate),
		},
		Marketplace: score.MarketplaceActivity{
			BuyTransactions:  snapshot.MarketplaceActivity.BuyTransactions,
			SellTransactions: snapshot.MarketplaceActivity.SellTransactions,
			Points:           snapshot.MarketplaceActivity.Points,
			LastTransaction:  fromUnixMilli(snapshot.MarketplaceActivity.LastTransactionDate),
		},
		Policing: score.CommunityPolicing{
			ReportsSubmitted: snapshot.CommunityPolicing.ReportsSubmitted,
			ReportsVerified:  snapshot.CommunityPolicing.ReportsVerified,
			Points:           snapshot.CommunityPolicing.Points,
			LastReport:       fromUnixMilli(snapshot.CommunityPolicing.LastReportDate),
		},
		Reliability: score.Reliability{
			SuccessfulValidations: snapshot.Reliability.SuccessfulValidations,
			FailedValidations:     snapshot.Reliability.FailedValidations,
			DisputesAsArbitrator:  snapshot.Reliability.DisputesAsArbitrator,
			DisputesResolved:      snapshot.Reliability.DisputesResolved,
			Points:                snapshot.Reliability.Points,
			LastActivity:          fromUnixMilli(snapshot.Reliability.LastActivityDate),
		},
	}
}

// A missing or zero wire timestamp means no recorded activity, which must map
// to the zero time so decay short circuits, not to the Unix epoch.
func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
