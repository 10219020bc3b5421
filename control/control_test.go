package control_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	participation "github.com/OmniBazaar/participation"
	"github.com/OmniBazaar/participation/control"
	"github.com/OmniBazaar/participation/decay"
	"github.com/OmniBazaar/participation/ledger"
	"github.com/OmniBazaar/participation/score"
	"github.com/OmniBazaar/participation/starterimpl/inmem"
)

type testLedger struct {
	counters  map[score.Address]score.ComponentCounters
	standings []ledger.Standing
}

func (l *testLedger) Snapshot(ctx context.Context, address score.Address) (score.ComponentCounters, error) {
	counters, ok := l.counters[address]
	if !ok {
		return score.ComponentCounters{Address: address}, nil
	}
	return counters, nil
}

func (l *testLedger) Report(ctx context.Context, report ledger.ActivityReport) (score.ComponentCounters, error) {
	counters := l.counters[report.Address]
	counters.Address = report.Address
	if _, ok := report.Event.(ledger.ReferralEvent); ok {
		counters.Referrals.Count += 1
	}
	l.counters[report.Address] = counters
	return counters, nil
}

func (l *testLedger) Leaderboard(ctx context.Context, limit int) ([]ledger.Standing, error) {
	return l.standings, nil
}

func createTestServer(t *testing.T, l *testLedger) *httptest.Server {
	t.Helper()
	engine, err := participation.NewEngine(
		l,
		inmem.NewScoreCache(16, time.Minute),
		nil,
		nil,
		decay.DefaultPolicies(),
		time.Minute,
		nil,
		zap.NewNop().Sugar(),
	)
	if err != nil {
		t.Fatalf("Failed to create engine: %s", err)
	}
	server := httptest.NewServer(control.NewHandler(engine, zap.NewNop().Sugar()))
	t.Cleanup(server.Close)
	return server
}

func TestGetScore(t *testing.T) {
	l := &testLedger{counters: map[score.Address]score.ComponentCounters{
		"addr1": {
			Address:    "addr1",
			Referrals:  score.Referrals{Count: 15},
			Publishing: score.Publishing{ListingsPublished: 1500},
		},
	}}
	server := createTestServer(t, l)

	resp, err := http.Get(server.URL + "/admin/score/addr1")
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Incorrect status. Expected: 200, Got: %d", resp.StatusCode)
	}

	var s score.ParticipationScore
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("Failed to decode body: %s", err)
	}
	if s.Address != "addr1" {
		t.Errorf("Incorrect address. Expected: addr1, Got: %s", s.Address)
	}
	// 10 referral points plus 2 publishing points.
	if s.TotalScore != 12 {
		t.Errorf("Incorrect score. Expected: 12, Got: %v", s.TotalScore)
	}
}

func TestGetScoreRequiresAddress(t *testing.T) {
	server := createTestServer(t, &testLedger{})

	resp, err := http.Get(server.URL + "/admin/score/")
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Incorrect status. Expected: 404, Got: %d", resp.StatusCode)
	}
}

func TestGetScoreRejectsPost(t *testing.T) {
	server := createTestServer(t, &testLedger{})

	resp, err := http.Post(server.URL+"/admin/score/addr1", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Incorrect status. Expected: 405, Got: %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != "GET" {
		t.Errorf("Incorrect Allow header. Expected: GET, Got: %s", resp.Header.Get("Allow"))
	}
}

func TestGetLeaderboard(t *testing.T) {
	l := &testLedger{standings: []ledger.Standing{
		{Address: "addr1", Score: 30},
		{Address: "addr2", Score: 12},
	}}
	server := createTestServer(t, l)

	resp, err := http.Get(server.URL + "/admin/leaderboard?limit=5")
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	var entries []participation.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode body: %s", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Incorrect number of entries. Expected: 2, Got: %d", len(entries))
	}
	if entries[0].Rank != 1 || entries[0].Address != "addr1" {
		t.Errorf("Incorrect first entry: %+v", entries[0])
	}
	if !entries[0].IsListingNode {
		t.Errorf("Expected addr1 to qualify as a listing node at score 30")
	}
}

func TestGetLeaderboardRejectsInvalidLimit(t *testing.T) {
	server := createTestServer(t, &testLedger{})

	resp, err := http.Get(server.URL + "/admin/leaderboard?limit=ten")
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Incorrect status. Expected: 422, Got: %d", resp.StatusCode)
	}
}

func TestCheckValidator(t *testing.T) {
	server := createTestServer(t, &testLedger{})

	resp, err := http.Get(server.URL + "/admin/validator/addr1")
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	var result struct {
		Qualified bool
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode body: %s", err)
	}
	if result.Qualified {
		t.Errorf("An address with no activity must not qualify as a validator")
	}
}

func TestReportActivity(t *testing.T) {
	l := &testLedger{counters: map[score.Address]score.ComponentCounters{}}
	server := createTestServer(t, l)

	body := `{"address": "addr1", "component": "referrals", "detail": "addr2"}`
	resp, err := http.Post(server.URL+"/admin/report", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Incorrect status. Expected: 200, Got: %d", resp.StatusCode)
	}

	var s score.ParticipationScore
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("Failed to decode body: %s", err)
	}
	if s.TotalScore != 1 {
		t.Errorf("Incorrect updated score. Expected: 1, Got: %v", s.TotalScore)
	}
	if l.counters["addr1"].Referrals.Count != 1 {
		t.Errorf("Report did not reach the ledger: %+v", l.counters["addr1"])
	}
}

func TestReportActivityRejectsUnknownComponent(t *testing.T) {
	server := createTestServer(t, &testLedger{counters: map[score.Address]score.ComponentCounters{}})

	body := `{"address": "addr1", "component": "charisma", "detail": "high"}`
	resp, err := http.Post(server.URL+"/admin/report", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Incorrect status. Expected: 422, Got: %d", resp.StatusCode)
	}
}

func TestReportActivityRejectsMalformedBody(t *testing.T) {
	server := createTestServer(t, &testLedger{})

	resp, err := http.Post(server.URL+"/admin/report", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Incorrect status. Expected: 422, Got: %d", resp.StatusCode)
	}
}
