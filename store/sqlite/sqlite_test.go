package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/revenue"
	"github.com/warp/contract-revenue/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y int, m time.Month, d int) *time.Time {
	t := revenue.Date(y, m, d)
	return &t
}

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sample() contract.Contract {
	value := usd("120000.50")
	created := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	return contract.Contract{
		ID:            "c1",
		Filename:      "msa.pdf",
		OriginalText:  "This agreement...",
		Status:        contract.StatusNeedsReview,
		Value:         &value,
		StartDate:     date(2025, time.January, 1),
		EndDate:       date(2025, time.December, 31),
		WorkStartDate: date(2025, time.February, 1),
		ClientName:    "Acme",
		Description:   "Implementation services",
		PaymentTerms:  "Net 30",
		Deliverables:  []string{"Design", "Build"},
		Confidence:    0.85,
		Reasoning:     "clear terms",
		Method:        revenue.MethodBilledBasis,
		ActualRevenue: usd("1000.25"),
		Milestones: []contract.Milestone{
			{ID: "m2", ContractID: "c1", Name: "Kickoff", Amount: usd("20000"), DueDate: date(2025, time.March, 1)},
			{ID: "m1", ContractID: "c1", Name: "Undated", Amount: usd("100000.50")},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStore_ContractRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveContract(ctx, sample()))

	got, err := s.GetContract(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, "msa.pdf", got.Filename)
	assert.Equal(t, contract.StatusNeedsReview, got.Status)
	require.NotNil(t, got.Value)
	assert.Equal(t, "120000.5", got.Value.String())
	assert.Equal(t, *date(2025, time.January, 1), *got.StartDate)
	assert.Equal(t, *date(2025, time.February, 1), *got.WorkStartDate)
	assert.Nil(t, got.WorkEndDate)
	assert.Nil(t, got.BillingStartDate)
	assert.Equal(t, []string{"Design", "Build"}, got.Deliverables)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, revenue.MethodBilledBasis, got.Method)
	assert.True(t, usd("1000.25").Equal(got.ActualRevenue))
	assert.True(t, sample().CreatedAt.Equal(got.CreatedAt))

	// Milestones keep their insertion order, not their ID order.
	require.Len(t, got.Milestones, 2)
	assert.Equal(t, "Kickoff", got.Milestones[0].Name)
	assert.Equal(t, *date(2025, time.March, 1), *got.Milestones[0].DueDate)
	assert.Nil(t, got.Milestones[1].DueDate)
}

func TestStore_SaveReplacesMilestones(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	c := sample()
	require.NoError(t, s.SaveContract(ctx, c))

	c.Milestones = []contract.Milestone{{ID: "m3", ContractID: "c1", Name: "Only", Amount: usd("1"), Completed: true}}
	c.Value = nil
	c.Status = contract.StatusCompleted
	require.NoError(t, s.SaveContract(ctx, c))

	got, err := s.GetContract(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got.Value)
	assert.Equal(t, contract.StatusCompleted, got.Status)
	require.Len(t, got.Milestones, 1)
	assert.Equal(t, "Only", got.Milestones[0].Name)
	assert.True(t, got.Milestones[0].Completed)
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := newStore(t).GetContract(context.Background(), "nope")
	assert.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	older := sample()
	newer := sample()
	newer.ID = "c2"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	for i := range newer.Milestones {
		newer.Milestones[i].ID += "-c2"
	}
	require.NoError(t, s.SaveContract(ctx, older))
	require.NoError(t, s.SaveContract(ctx, newer))

	all, err := s.ListContracts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID)
	assert.Equal(t, "c1", all[1].ID)
	assert.Len(t, all[0].Milestones, 2)
}

func TestStore_ReplaceSchedule(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveContract(ctx, sample()))

	allocations, err := revenue.Calculate(revenue.Params{
		TotalValue: usd("1000"),
		StartDate:  *date(2025, time.January, 15),
		EndDate:    *date(2025, time.March, 10),
		Method:     revenue.MethodStraightLine,
	})
	require.NoError(t, err)

	items := func(prefix string, allocs []revenue.Allocation, method revenue.Method) []contract.RevenueItem {
		out := make([]contract.RevenueItem, len(allocs))
		for i, a := range allocs {
			out[i] = contract.RevenueItem{
				ID: prefix + string(rune('a'+i)), ContractID: "c1", Method: method, Sequence: i,
				Allocation: a, CreatedAt: time.Now(),
			}
		}
		return out
	}

	require.NoError(t, s.ReplaceSchedule(ctx, "c1", items("first-", allocations, revenue.MethodStraightLine)))

	got, err := s.LoadSchedule(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, *date(2025, time.February, 28), got[1].RecognitionDate)
	assert.Equal(t, "333.34", got[1].Amount.String())
	assert.Equal(t, revenue.KindMonthly, got[0].Kind)
	assert.Equal(t, "Month 1 of 3 — Straight-line allocation", got[0].Description)

	// Replacing with a shorter schedule leaves nothing of the old one.
	milestones := revenue.MilestoneBased([]revenue.Milestone{{Name: "Go-live", Amount: usd("1000"), DueDate: *date(2025, time.June, 1)}})
	require.NoError(t, s.ReplaceSchedule(ctx, "c1", items("second-", milestones, revenue.MethodMilestoneBased)))

	got, err = s.LoadSchedule(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second-a", got[0].ID)
	assert.Equal(t, revenue.MethodMilestoneBased, got[0].Method)

	assert.ErrorIs(t, s.ReplaceSchedule(ctx, "nope", nil), contract.ErrContractNotFound)
}

func TestStore_SnapshotsAndCascadeDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveContract(ctx, sample()))

	taken := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"s2", "s1"} {
		snap := contract.ForwardBookSnapshot{
			ID:            id,
			ContractID:    "c1",
			ActualRevenue: usd("10"),
			ForwardBookSummary: revenue.ForwardBookSummary{
				TotalContracted: usd("1000"),
				EarnedToDate:    usd("400"),
				Unearned:        usd("990"),
				ForwardBook:     usd("600"),
				AsOf:            taken.AddDate(0, 0, i),
			},
			TakenAt: taken.AddDate(0, 0, i),
		}
		require.NoError(t, s.SaveSnapshot(ctx, snap))
	}

	snaps, err := s.ListSnapshots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].ID)
	assert.True(t, usd("600").Equal(snaps[0].ForwardBook))
	assert.True(t, taken.Equal(snaps[0].TakenAt))

	assert.ErrorIs(t, s.SaveSnapshot(ctx, contract.ForwardBookSnapshot{ID: "x", ContractID: "nope"}), contract.ErrContractNotFound)

	require.NoError(t, s.DeleteContract(ctx, "c1"))
	snaps, err = s.ListSnapshots(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
	items, err := s.LoadSchedule(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.ErrorIs(t, s.DeleteContract(ctx, "c1"), contract.ErrContractNotFound)
}

func TestStore_SaveSnapshotConstraintErrors(t *testing.T) {
	// GIVEN: A stored contract with one snapshot
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveContract(ctx, sample()))
	snap := contract.ForwardBookSnapshot{ID: "s1", ContractID: "c1", TakenAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	// WHEN: Saving a snapshot for an unknown contract
	err := s.SaveSnapshot(ctx, contract.ForwardBookSnapshot{ID: "s2", ContractID: "nope"})

	// THEN: The foreign key violation is reported as a missing contract
	assert.ErrorIs(t, err, contract.ErrContractNotFound)

	// WHEN: Reusing a snapshot ID
	err = s.SaveSnapshot(ctx, snap)

	// THEN: Other constraint failures pass through untouched
	require.Error(t, err)
	assert.NotErrorIs(t, err, contract.ErrContractNotFound)
	var sqliteErr sqlite3.Error
	require.ErrorAs(t, err, &sqliteErr)
	assert.Equal(t, sqlite3.ErrConstraintPrimaryKey, sqliteErr.ExtendedCode)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contracts.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveContract(ctx, sample()))
	require.NoError(t, s.Close())

	// Migrations are idempotent on an existing database.
	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetContract(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.ClientName)
}
