// server/internal/provenance/stats_test.go
package provenance

import (
	"context"
	"testing"
	"time"

	"agritrace-api-server/internal/models"

	"github.com/stretchr/testify/require"
)

func TestStatsZeroBaseline(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.Zero(t, result.TotalCodes)
	require.Zero(t, result.TotalScans)
	require.Zero(t, result.Last30Days)
	require.NotNil(t, result.MonthlyTrend)
	require.Empty(t, result.MonthlyTrend)
	require.NotNil(t, result.RecentActivity)
	require.Empty(t, result.RecentActivity)
}

func TestStatsTotalsUseEffectiveStatus(t *testing.T) {
	f := newFixture(t)
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))

	f.advance(366 * 24 * time.Hour)
	active := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Abuja", "Yam"))
	revoked := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Kano, Kano State", "Rice"))
	verified := f.issue(f.seedHarvest(models.HarvestStatusListed, "Jos, Plateau State", "Tomato"))
	_, err := f.svc.Revoke(context.Background(), f.farmerID(), revoked.ID.Hex())
	require.NoError(t, err)
	_, err = f.svc.MarkVerified(context.Background(), f.farmerID(), verified.ID.Hex())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordScan(context.Background(), active.ID.Hex(), ScanInput{})
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.RecordDownload(context.Background(), f.farmerID(), active.ID.Hex()))

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.EqualValues(t, 4, result.TotalCodes)
	require.EqualValues(t, 1, result.Active)
	require.EqualValues(t, 1, result.Expired) // the stale record, still "active" on disk
	require.EqualValues(t, 1, result.Revoked)
	require.EqualValues(t, 1, result.Verified)
	require.EqualValues(t, 3, result.TotalScans)
	require.EqualValues(t, 1, result.TotalDownloads)
}

func TestStatsMonthlyTrend(t *testing.T) {
	f := newFixture(t)
	// Two codes in August 2026, one in September.
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))
	scanned := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Kano, Kano State", "Rice"))
	_, err := f.svc.RecordScan(context.Background(), scanned.ID.Hex(), ScanInput{})
	require.NoError(t, err)

	f.advance(15 * 24 * time.Hour)
	verified := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Abuja", "Yam"))
	_, err = f.svc.MarkVerified(context.Background(), f.farmerID(), verified.ID.Hex())
	require.NoError(t, err)

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.Len(t, result.MonthlyTrend, 2)

	// Newest month first.
	require.Equal(t, 2026, result.MonthlyTrend[0].Year)
	require.Equal(t, 9, result.MonthlyTrend[0].Month)
	require.EqualValues(t, 1, result.MonthlyTrend[0].Generated)
	require.EqualValues(t, 1, result.MonthlyTrend[0].Verified)

	require.Equal(t, 8, result.MonthlyTrend[1].Month)
	require.EqualValues(t, 2, result.MonthlyTrend[1].Generated)
	require.EqualValues(t, 1, result.MonthlyTrend[1].Scanned)
}

func TestStatsTrendIsCappedAtTwelveMonths(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 14; i++ {
		f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))
		f.advance(31 * 24 * time.Hour)
	}

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.Len(t, result.MonthlyTrend, trendMonths)
	for i := 1; i < len(result.MonthlyTrend); i++ {
		prev, cur := result.MonthlyTrend[i-1], result.MonthlyTrend[i]
		require.True(t, prev.Year > cur.Year || (prev.Year == cur.Year && prev.Month > cur.Month))
	}
}

func TestStatsLast30DaysGrowth(t *testing.T) {
	f := newFixture(t)
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))
	f.advance(40 * 24 * time.Hour)
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Kano, Kano State", "Rice"))
	f.advance(10 * 24 * time.Hour)
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Abuja", "Yam"))

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.EqualValues(t, 3, result.TotalCodes)
	require.EqualValues(t, 2, result.Last30Days)
}

func TestStatsRecentActivity(t *testing.T) {
	f := newFixture(t)
	var codes []string
	for _, crop := range []string{"Maize", "Rice", "Yam", "Tomato", "Cassava", "Pepper", "Okra"} {
		f.advance(time.Hour)
		record := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", crop))
		codes = append(codes, record.Code)
	}

	// Touch the oldest record so it jumps to the top of the feed.
	f.advance(time.Hour)
	first, err := f.store.CodeByBatch(context.Background(), "BATCH-20260810-0001")
	require.NoError(t, err)
	_, err = f.svc.RecordScan(context.Background(), first.ID.Hex(), ScanInput{})
	require.NoError(t, err)

	result, err := f.svc.Stats(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.Len(t, result.RecentActivity, activityItems)
	require.Equal(t, codes[0], result.RecentActivity[0].Code)
	require.Equal(t, codes[6], result.RecentActivity[1].Code)
	require.Equal(t, codes[5], result.RecentActivity[2].Code)
}

func TestStatsScopedToFarmer(t *testing.T) {
	f := newFixture(t)
	other := f.store.PutUser(models.User{Email: "bode@other.ng", Role: "farmer"})
	f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))

	result, err := f.svc.Stats(context.Background(), other.ID.Hex())
	require.NoError(t, err)
	require.Zero(t, result.TotalCodes)
}
