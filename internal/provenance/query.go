// server/internal/provenance/query.go
package provenance

import (
	"context"
	"fmt"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListQuery is the farmer-facing search over issued codes.
type ListQuery struct {
	Page     int64
	Limit    int64
	Status   string
	CropType string
	Search   string
}

// ListResult is one page of flattened code views plus pagination metadata.
type ListResult struct {
	Items      []CodeView `json:"items"`
	Total      int64      `json:"total"`
	Page       int64      `json:"page"`
	Limit      int64      `json:"limit"`
	TotalPages int64      `json:"totalPages"`
}

// List returns the caller's codes newest-first with optional status,
// crop-type and free-text filters, joined with a minimal harvest projection.
func (s *Service) List(ctx context.Context, farmerID string, q ListQuery) (*ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	codes, total, err := s.store.ListCodes(ctx, ListFilter{
		FarmerID: farmerID,
		Status:   q.Status,
		CropType: q.CropType,
		Search:   q.Search,
		Skip:     (q.Page - 1) * q.Limit,
		Limit:    q.Limit,
		Now:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("listing QR codes: %w", err)
	}

	harvestIDs := make([]primitive.ObjectID, 0, len(codes))
	for _, c := range codes {
		if oid, err := primitive.ObjectIDFromHex(c.HarvestID); err == nil {
			harvestIDs = append(harvestIDs, oid)
		}
	}
	harvests, err := s.store.HarvestsByIDs(ctx, harvestIDs)
	if err != nil {
		return nil, fmt.Errorf("joining harvests: %w", err)
	}

	items := make([]CodeView, 0, len(codes))
	for i := range codes {
		var h *models.Harvest
		if joined, ok := harvests[codes[i].HarvestID]; ok {
			h = &joined
		}
		items = append(items, s.view(&codes[i], h))
	}

	totalPages := total / q.Limit
	if total%q.Limit != 0 {
		totalPages++
	}
	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}, nil
}

// PublicVerification is what the public verify page sees for a batch: the
// provenance snapshot without the farmer-only counters and artifact.
type PublicVerification struct {
	ID        string              `json:"id"`
	Code      string              `json:"code"`
	BatchID   string              `json:"batchID"`
	Status    string              `json:"status"`
	IsExpired bool                `json:"isExpired"`
	CropType  string              `json:"cropType"`
	Quantity  models.Quantity     `json:"quantity"`
	Grade     string              `json:"qualityGrade,omitempty"`
	Harvested string              `json:"harvestDate"`
	Location  models.CodeLocation `json:"location"`
	ScanCount int64               `json:"scanCount"`
}

// VerifyByBatch resolves the record behind a verification URL. It is public:
// no farmer scoping applies.
func (s *Service) VerifyByBatch(ctx context.Context, batchID string) (*PublicVerification, error) {
	if batchID == "" {
		return nil, validationf("batch id is required")
	}
	code, err := s.store.CodeByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("looking up batch: %w", err)
	}
	if code == nil {
		return nil, notFoundf("no QR code issued for batch %q", batchID)
	}

	now := s.now()
	return &PublicVerification{
		ID:        code.ID.Hex(),
		Code:      code.Code,
		BatchID:   code.BatchID,
		Status:    code.EffectiveStatus(now),
		IsExpired: code.IsExpired(now),
		CropType:  code.Metadata.CropType,
		Quantity:  code.Metadata.Quantity,
		Grade:     code.Metadata.QualityGrade,
		Harvested: code.Metadata.HarvestDate.Format("2006-01-02"),
		Location:  code.Metadata.Location,
		ScanCount: code.ScanCount,
	}, nil
}
