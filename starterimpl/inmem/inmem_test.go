package inmem_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/OmniBazaar/participation/score"
	"github.com/OmniBazaar/participation/starterimpl/inmem"
)

func TestScoreCachePutGetEvict(t *testing.T) {
	cache := inmem.NewScoreCache(16, time.Minute)

	if _, ok := cache.Get("addr1"); ok {
		t.Errorf("Expected a miss for an empty cache")
	}

	s := score.ParticipationScore{Address: "addr1", TotalScore: 12, LastCalculated: time.Now()}
	cache.Put(s)

	got, ok := cache.Get("addr1")
	if !ok {
		t.Fatalf("Expected a hit after Put")
	}
	if got != s {
		t.Errorf("Incorrect cached score. Expected: %+v, Got: %+v", s, got)
	}

	cache.Evict("addr1")
	if _, ok := cache.Get("addr1"); ok {
		t.Errorf("Expected a miss after Evict")
	}
}

func TestScoreCachePutReplacesEntry(t *testing.T) {
	cache := inmem.NewScoreCache(16, time.Minute)
	cache.Put(score.ParticipationScore{Address: "addr1", TotalScore: 5})
	cache.Put(score.ParticipationScore{Address: "addr1", TotalScore: 6})

	got, ok := cache.Get("addr1")
	if !ok {
		t.Fatalf("Expected a hit after Put")
	}
	if got.TotalScore != 6 {
		t.Errorf("Put did not replace the entry. Expected: 6, Got: %v", got.TotalScore)
	}
}

func TestScoreCacheExpiry(t *testing.T) {
	cache := inmem.NewScoreCache(16, 20*time.Millisecond)
	cache.Put(score.ParticipationScore{Address: "addr1", TotalScore: 12})

	time.Sleep(50 * time.Millisecond)

	if _, ok := cache.Get("addr1"); ok {
		t.Errorf("Expected the entry to expire")
	}
}

func TestScoreCacheClear(t *testing.T) {
	cache := inmem.NewScoreCache(16, time.Minute)
	cache.Put(score.ParticipationScore{Address: "addr1"})
	cache.Put(score.ParticipationScore{Address: "addr2"})

	cache.Clear()

	if _, ok := cache.Get("addr1"); ok {
		t.Errorf("Expected addr1 to be cleared")
	}
	if _, ok := cache.Get("addr2"); ok {
		t.Errorf("Expected addr2 to be cleared")
	}
}

func TestStakingSource(t *testing.T) {
	source := inmem.NewStakingSource(map[score.Address]*big.Int{"addr1": big.NewInt(1_500_000)})

	amount, err := source.StakingAmount(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("StakingAmount failed: %s", err)
	}
	if amount.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Errorf("Incorrect stake. Expected: 1500000, Got: %s", amount)
	}

	amount, err = source.StakingAmount(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("StakingAmount failed for unknown address: %s", err)
	}
	if amount.Sign() != 0 {
		t.Errorf("Unknown address must report zero stake, Got: %s", amount)
	}

	source.SetStake("addr2", big.NewInt(42))
	amount, _ = source.StakingAmount(context.Background(), "addr2")
	if amount.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("SetStake did not take effect. Expected: 42, Got: %s", amount)
	}
}

func TestKYCSource(t *testing.T) {
	source := inmem.NewKYCSource(map[score.Address]bool{"addr1": true})

	approved, err := source.KYCStatus(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("KYCStatus failed: %s", err)
	}
	if !approved {
		t.Errorf("Expected addr1 to be approved")
	}

	approved, _ = source.KYCStatus(context.Background(), "stranger")
	if approved {
		t.Errorf("Unknown address must report unverified")
	}

	source.SetApproved("addr2", true)
	if approved, _ := source.KYCStatus(context.Background(), "addr2"); !approved {
		t.Errorf("SetApproved did not take effect")
	}
}
