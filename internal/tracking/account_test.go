package tracking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	operator  = "OperatorPubkey1111111111111111111111111111"
	userOwner = "UserPubkey111111111111111111111111111111111"
	threshold = uint64(2_000_000)
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewTrackedAccount_Classification(t *testing.T) {
	blockTime := int64(1_700_000_000)

	op := NewTrackedAccount(Discovery{Address: "A", Mint: "M", Owner: operator, Signature: "sig", BlockTime: &blockTime, IsNew: true}, operator, now)
	assert.Equal(t, CategoryOperatorOwned, op.Category)
	assert.True(t, op.Reclaimable)
	assert.Equal(t, blockTime, op.Metadata.CreatedAt)
	assert.Equal(t, "sig", op.Metadata.CreatedInTx)
	assert.True(t, op.Metadata.IsNew)

	user := NewTrackedAccount(Discovery{Address: "B", Mint: "M", Owner: userOwner}, operator, now)
	assert.Equal(t, CategoryUserOwned, user.Category)
	assert.False(t, user.Reclaimable)
	assert.Equal(t, now.Unix(), user.Metadata.CreatedAt, "falls back to wall clock without block time")
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		lamports     uint64
		tokenBalance uint64
		want         Status
	}{
		{"empty above threshold", 3_000_000, 0, StatusEligible},
		{"empty at threshold", threshold, 0, StatusEligible},
		{"empty below threshold", threshold - 1, 0, StatusActive},
		{"holding tokens", 10_000_000, 1, StatusActive},
		{"holding tokens with no lamports", 0, 5, StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.lamports, tt.tokenBalance, threshold))
		})
	}
}

func TestObserve_Transitions(t *testing.T) {
	acc := NewTrackedAccount(Discovery{Address: "A", Owner: operator}, operator, now)

	assert.Equal(t, StatusActive, acc.Observe(&Observation{Lamports: 3_000_000, TokenBalance: 7}, threshold, now))
	assert.Equal(t, StatusEligible, acc.Observe(&Observation{Lamports: 3_000_000}, threshold, now))
	assert.Equal(t, StatusActive, acc.Observe(&Observation{Lamports: 3_000_000, TokenBalance: 1}, threshold, now))
	assert.Equal(t, uint64(1), acc.Metadata.TokenBalance)
	require.NotNil(t, acc.Metadata.CheckedAt)

	assert.Equal(t, StatusClosed, acc.Observe(nil, threshold, now))
	assert.Equal(t, StatusClosed, acc.Observe(&Observation{Lamports: 3_000_000}, threshold, now), "closed is terminal")
	assert.Equal(t, CategoryOperatorOwned, acc.Category)
}

func TestObserve_ReclaimedThenGone(t *testing.T) {
	acc := NewTrackedAccount(Discovery{Address: "A", Owner: operator}, operator, now)
	acc.Observe(&Observation{Lamports: 2_039_280}, threshold, now)
	acc.MarkReclaimed(2_039_280, "closeSig", now)

	assert.Equal(t, StatusReclaimed, acc.Observe(&Observation{Lamports: 1}, threshold, now))
	assert.Equal(t, uint64(2_039_280), acc.Metadata.Lamports)

	assert.Equal(t, StatusClosed, acc.Observe(nil, threshold, now))
	assert.True(t, acc.WasReclaimed())
	require.NotNil(t, acc.Metadata.LamportsRecovered)
	assert.Equal(t, uint64(2_039_280), *acc.Metadata.LamportsRecovered)
}

func TestAccountSet_FirstWriteWins(t *testing.T) {
	set := AccountSet{}
	first := NewTrackedAccount(Discovery{Address: "A", Mint: "first", Owner: operator}, operator, now)
	second := NewTrackedAccount(Discovery{Address: "A", Mint: "second", Owner: userOwner}, operator, now)

	assert.True(t, set.Insert(first))
	assert.False(t, set.Insert(second))
	assert.Equal(t, "first", set["A"].Metadata.Mint)
	assert.Equal(t, CategoryOperatorOwned, set["A"].Category)
}

func TestAccountSet_OrderingAndEligible(t *testing.T) {
	set := AccountSet{}
	for _, addr := range []string{"C", "A", "B"} {
		set.Insert(NewTrackedAccount(Discovery{Address: addr, Owner: operator}, operator, now))
	}
	set.Insert(NewTrackedAccount(Discovery{Address: "D", Owner: userOwner}, operator, now))

	set["C"].Observe(&Observation{Lamports: 3_000_000}, threshold, now)
	set["A"].Observe(&Observation{Lamports: 3_000_000}, threshold, now)
	set["D"].Metadata.Status = StatusEligible

	assert.Equal(t, []string{"A", "B", "C", "D"}, set.Addresses())

	eligible := set.Eligible()
	require.Len(t, eligible, 2)
	assert.Equal(t, "A", eligible[0].Address)
	assert.Equal(t, "C", eligible[1].Address)
}

func TestTrackedAccount_JSONFieldNames(t *testing.T) {
	acc := NewTrackedAccount(Discovery{Address: "A", Mint: "M", Owner: operator, Signature: "sig"}, operator, now)
	acc.Observe(&Observation{Lamports: 2_039_280}, threshold, now)

	data, err := json.Marshal(acc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "operator-owned", raw["category"])
	meta := raw["metadata"].(map[string]any)
	assert.Equal(t, "eligible", meta["status"])
	assert.Equal(t, "sig", meta["createdInTx"])
	assert.Contains(t, meta, "checkedAt")
	assert.NotContains(t, meta, "reclaimedAt")
}

func TestRecords(t *testing.T) {
	acc := NewTrackedAccount(Discovery{Address: "A", Mint: "M", Owner: operator}, operator, now)

	dry := NewDryRunRecord("A", acc, now)
	assert.True(t, dry.DryRun)
	assert.Nil(t, dry.LamportsRecovered)
	assert.Equal(t, DryRunNote, dry.Note)
	assert.Equal(t, "M", dry.TokenMint)
	assert.Equal(t, CategoryOperatorOwned, dry.Category)

	live := NewReclaimRecord("A", acc, 2_039_280, "sig", now)
	require.NotNil(t, live.LamportsRecovered)
	assert.Equal(t, uint64(2_039_280), *live.LamportsRecovered)
	assert.Equal(t, "sig", live.Signature)

	untracked := NewDryRunRecord("Z", nil, now)
	assert.Empty(t, untracked.TokenMint)
}
