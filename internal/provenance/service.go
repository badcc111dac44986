// server/internal/provenance/service.go
package provenance

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encoder turns a payload into a scannable image artifact (a PNG data URL).
// It is treated as a pure function; failures surface as ErrEncoding.
type Encoder interface {
	Encode(payload []byte) (string, error)
}

// ImageMirror uploads the raw PNG somewhere public and returns its URL.
// *s3.Uploader satisfies this.
type ImageMirror interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey string) (string, error)
}

// Anchorer submits issuance/revocation facts to an external ledger.
type Anchorer interface {
	AnchorIssuance(ctx context.Context, code, batchID, digest string) error
	AnchorRevocation(ctx context.Context, code string) error
}

// ServiceConfig carries the engine's tunables.
type ServiceConfig struct {
	BaseURL      string
	DefaultState string
	ValidityDays int
}

// Service implements the batch provenance code engine: issuance, lifecycle,
// scan recording, downloads, queries and stats, all farmer-scoped.
type Service struct {
	store   Store
	encoder Encoder
	cfg     ServiceConfig

	// Mirror and Anchor are optional collaborators; both are best-effort
	// and never fail an operation.
	Mirror ImageMirror
	Anchor Anchorer

	now func() time.Time
}

func NewService(store Store, encoder Encoder, cfg ServiceConfig) *Service {
	if cfg.ValidityDays <= 0 {
		cfg.ValidityDays = 365
	}
	if cfg.DefaultState == "" {
		cfg.DefaultState = "Nigeria"
	}
	return &Service{
		store:   store,
		encoder: encoder,
		cfg:     cfg,
		now:     time.Now,
	}
}

// HarvestSummary is the minimal harvest projection joined into list views.
type HarvestSummary struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// CodeView is the flattened read model merging the record's top-level fields
// with its metadata snapshot for display convenience.
type CodeView struct {
	ID               string              `json:"id"`
	HarvestID        string              `json:"harvestID"`
	FarmerID         string              `json:"farmerID"`
	Code             string              `json:"code"`
	BatchID          string              `json:"batchID"`
	Image            string              `json:"image"`
	ImageURL         string              `json:"imageURL,omitempty"`
	Status           string              `json:"status"`
	IsExpired        bool                `json:"isExpired"`
	ExpiresAt        time.Time           `json:"expiresAt"`
	ScanCount        int64               `json:"scanCount"`
	LastScannedAt    *time.Time          `json:"lastScannedAt,omitempty"`
	DownloadCount    int64               `json:"downloadCount"`
	LastDownloadedAt *time.Time          `json:"lastDownloadedAt,omitempty"`
	CropType         string              `json:"cropType"`
	Quantity         models.Quantity     `json:"quantity"`
	QualityGrade     string              `json:"qualityGrade,omitempty"`
	HarvestDate      time.Time           `json:"harvestDate"`
	Location         models.CodeLocation `json:"location"`
	Harvest          *HarvestSummary     `json:"harvest,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func (s *Service) view(q *models.QRCode, h *models.Harvest) CodeView {
	now := s.now()
	v := CodeView{
		ID:               q.ID.Hex(),
		HarvestID:        q.HarvestID,
		FarmerID:         q.FarmerID,
		Code:             q.Code,
		BatchID:          q.BatchID,
		Image:            q.Image,
		ImageURL:         q.ImageURL,
		Status:           q.EffectiveStatus(now),
		IsExpired:        q.IsExpired(now),
		ExpiresAt:        q.ExpiresAt,
		ScanCount:        q.ScanCount,
		LastScannedAt:    q.LastScannedAt,
		DownloadCount:    q.DownloadCount,
		LastDownloadedAt: q.LastDownloadedAt,
		CropType:         q.Metadata.CropType,
		Quantity:         q.Metadata.Quantity,
		QualityGrade:     q.Metadata.QualityGrade,
		HarvestDate:      q.Metadata.HarvestDate,
		Location:         q.Metadata.Location,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
	if h != nil {
		v.Harvest = &HarvestSummary{ID: h.ID.Hex(), Status: h.Status, Location: h.Location}
	}
	return v
}

// ownedCode resolves a code id within the caller's scope. A record that
// exists but belongs to another farmer is reported as not found.
func (s *Service) ownedCode(ctx context.Context, farmerID, id string) (*models.QRCode, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFoundf("QR code %q not found", id)
	}
	code, err := s.store.CodeByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("looking up QR code: %w", err)
	}
	if code == nil || code.FarmerID != farmerID {
		return nil, notFoundf("QR code %q not found", id)
	}
	return code, nil
}

// imageBytes decodes the stored data URL back into raw PNG bytes.
func imageBytes(q *models.QRCode) ([]byte, error) {
	i := strings.Index(q.Image, ",")
	if i < 0 {
		return nil, fmt.Errorf("%w: image artifact for %s is not a data URL", ErrEncoding, q.Code)
	}
	data, err := base64.StdEncoding.DecodeString(q.Image[i+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image artifact for %s: %v", ErrEncoding, q.Code, err)
	}
	return data, nil
}
