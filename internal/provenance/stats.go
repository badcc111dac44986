// server/internal/provenance/stats.go
package provenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"agritrace-api-server/internal/models"
)

// MonthBucket is one (year, month) slice of the issuance trend.
type MonthBucket struct {
	Year      int   `json:"year"`
	Month     int   `json:"month"`
	Generated int64 `json:"generated"`
	Scanned   int64 `json:"scanned"`
	Verified  int64 `json:"verified"`
}

// ActivityItem is the minimal projection shown in the recent-activity feed.
type ActivityItem struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	BatchID   string    `json:"batchID"`
	CropType  string    `json:"cropType"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatsResult aggregates a farmer's codes. A farmer with no codes gets the
// zero-valued baseline, never an error.
type StatsResult struct {
	TotalCodes     int64          `json:"totalCodes"`
	Active         int64          `json:"active"`
	Expired        int64          `json:"expired"`
	Revoked        int64          `json:"revoked"`
	Verified       int64          `json:"verified"`
	TotalScans     int64          `json:"totalScans"`
	TotalDownloads int64          `json:"totalDownloads"`
	MonthlyTrend   []MonthBucket  `json:"monthlyTrend"`
	Last30Days     int64          `json:"last30Days"`
	RecentActivity []ActivityItem `json:"recentActivity"`
}

const (
	trendMonths   = 12
	activityItems = 5
	growthWindow  = 30 * 24 * time.Hour
)

// Stats computes per-farmer totals, the 12-month issuance trend, 30-day
// growth and the recent-activity feed in one pass over the farmer's codes.
func (s *Service) Stats(ctx context.Context, farmerID string) (*StatsResult, error) {
	codes, err := s.store.CodesByFarmer(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("loading QR codes for stats: %w", err)
	}

	now := s.now()
	result := &StatsResult{
		MonthlyTrend:   []MonthBucket{},
		RecentActivity: []ActivityItem{},
	}

	buckets := make(map[[2]int]*MonthBucket)
	for i := range codes {
		c := &codes[i]
		result.TotalCodes++
		status := c.EffectiveStatus(now)
		switch status {
		case models.CodeStatusActive:
			result.Active++
		case models.CodeStatusExpired:
			result.Expired++
		case models.CodeStatusRevoked:
			result.Revoked++
		case models.CodeStatusVerified:
			result.Verified++
		}
		result.TotalScans += c.ScanCount
		result.TotalDownloads += c.DownloadCount

		if now.Sub(c.CreatedAt) <= growthWindow {
			result.Last30Days++
		}

		key := [2]int{c.CreatedAt.Year(), int(c.CreatedAt.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &MonthBucket{Year: key[0], Month: key[1]}
			buckets[key] = b
		}
		b.Generated++
		b.Scanned += c.ScanCount
		if status == models.CodeStatusVerified {
			b.Verified++
		}
	}

	for _, b := range buckets {
		result.MonthlyTrend = append(result.MonthlyTrend, *b)
	}
	sort.Slice(result.MonthlyTrend, func(i, j int) bool {
		a, b := result.MonthlyTrend[i], result.MonthlyTrend[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	if len(result.MonthlyTrend) > trendMonths {
		result.MonthlyTrend = result.MonthlyTrend[:trendMonths]
	}

	sort.Slice(codes, func(i, j int) bool {
		return codes[i].UpdatedAt.After(codes[j].UpdatedAt)
	})
	for i := 0; i < len(codes) && i < activityItems; i++ {
		c := &codes[i]
		result.RecentActivity = append(result.RecentActivity, ActivityItem{
			ID:        c.ID.Hex(),
			Code:      c.Code,
			BatchID:   c.BatchID,
			CropType:  c.Metadata.CropType,
			Status:    c.EffectiveStatus(now),
			UpdatedAt: c.UpdatedAt,
		})
	}

	return result, nil
}
