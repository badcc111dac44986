// server/internal/provenance/scans.go
package provenance

import (
	"context"
	"fmt"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScanInput is one verification attempt as reported by the scanning client.
// All actor fields are optional: anonymous scans are recorded too.
type ScanInput struct {
	UserID      string
	ActorType   string
	ActorName   string
	Location    string
	Outcome     string
	Notes       string
	UserAgent   string
	IP          string
	Coordinates *models.GeoPoint
}

// ScanEvent is what the live feed broadcasts after a scan is recorded.
type ScanEvent struct {
	Type      string `json:"type"`
	FarmerID  string `json:"-"`
	Code      string `json:"code"`
	BatchID   string `json:"batchID"`
	CropType  string `json:"cropType"`
	Outcome   string `json:"outcome"`
	ScanCount int64  `json:"scanCount"`
	ScannedAt string `json:"scannedAt"`
}

// RecordScan appends one entry to the code's audit log and bumps its rolling
// counters. Every call is recorded; there is no deduplication or throttling.
func (s *Service) RecordScan(ctx context.Context, id string, in ScanInput) (*ScanEvent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFoundf("QR code %q not found", id)
	}
	code, err := s.store.CodeByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("looking up QR code: %w", err)
	}
	if code == nil {
		return nil, notFoundf("QR code %q not found", id)
	}

	outcome := in.Outcome
	switch outcome {
	case "":
		outcome = models.ScanOutcomeSuccess
	case models.ScanOutcomeSuccess, models.ScanOutcomeFailed, models.ScanOutcomeTampered:
	default:
		return nil, validationf("unknown scan outcome %q", in.Outcome)
	}

	now := s.now()
	scan := &models.Scan{
		CodeID:    code.ID,
		ScannedAt: now,
		UserID:    in.UserID,
		ActorType: in.ActorType,
		ActorName: in.ActorName,
		Location:  in.Location,
		Outcome:   outcome,
		Notes:     in.Notes,
		Device: models.ScanDevice{
			UserAgent:   in.UserAgent,
			IP:          in.IP,
			Coordinates: in.Coordinates,
		},
	}
	if err := s.store.AppendScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("recording scan: %w", err)
	}

	return &ScanEvent{
		Type:      "scan",
		FarmerID:  code.FarmerID,
		Code:      code.Code,
		BatchID:   code.BatchID,
		CropType:  code.Metadata.CropType,
		Outcome:   outcome,
		ScanCount: code.ScanCount + 1,
		ScannedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

// CodeDetail is the full record including its scan log.
type CodeDetail struct {
	CodeView
	Scans []models.Scan `json:"scans"`
}

// GetByID returns the full record with its audit log, farmer-scoped.
func (s *Service) GetByID(ctx context.Context, farmerID, id string) (*CodeDetail, error) {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return nil, err
	}
	scans, err := s.store.ScansByCode(ctx, code.ID)
	if err != nil {
		return nil, fmt.Errorf("loading scan log: %w", err)
	}
	if scans == nil {
		scans = []models.Scan{}
	}
	return &CodeDetail{CodeView: s.view(code, nil), Scans: scans}, nil
}
