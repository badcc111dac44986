// server/internal/provenance/issuer.go
package provenance

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agritrace-api-server/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const issueRetries = 3

// Issue creates the one verification code for a harvest batch. The harvest
// must exist, belong to the caller and be approved or listed, and must not
// already carry a code. On success the harvest holds a denormalized copy of
// the image and payload; on any failure no partial record stays visible.
func (s *Service) Issue(ctx context.Context, farmerID, harvestID string, custom map[string]interface{}) (*models.QRCode, error) {
	if harvestID == "" {
		return nil, validationf("harvest id is required")
	}
	hid, err := primitive.ObjectIDFromHex(harvestID)
	if err != nil {
		return nil, notFoundf("harvest %q not found", harvestID)
	}

	harvest, err := s.store.HarvestByID(ctx, hid)
	if err != nil {
		return nil, fmt.Errorf("looking up harvest: %w", err)
	}
	if harvest == nil || harvest.FarmerID != farmerID {
		return nil, notFoundf("harvest %q not found", harvestID)
	}
	if !harvest.Issuable() {
		return nil, conflictf("harvest must be approved or listed before a QR code can be issued (current status: %s)", harvest.Status)
	}

	existing, err := s.store.CodeByHarvest(ctx, harvestID)
	if err != nil {
		return nil, fmt.Errorf("checking for existing QR code: %w", err)
	}
	if existing != nil {
		return nil, conflictf("a QR code already exists for harvest %s", harvest.BatchID)
	}

	farmer, err := s.store.FarmerByID(ctx, mustObjectID(farmerID))
	if err != nil {
		return nil, fmt.Errorf("looking up farmer: %w", err)
	}

	now := s.now()
	payload := s.buildPayload(harvest, farmerID, now, custom)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}

	image, err := s.encoder.Encode(payloadJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	city, state := ParseLocation(harvest.Location, s.cfg.DefaultState)
	record := &models.QRCode{
		HarvestID: harvestID,
		FarmerID:  farmerID,
		BatchID:   harvest.BatchID,
		Image:     image,
		Payload:   payload,
		Status:    models.CodeStatusActive,
		ExpiresAt: now.Add(time.Duration(s.cfg.ValidityDays) * 24 * time.Hour),
		Metadata: models.CodeMetadata{
			CropType:     harvest.CropType,
			Quantity:     harvest.Quantity,
			QualityGrade: harvest.QualityGrade,
			HarvestDate:  harvest.HarvestDate,
			Location: models.CodeLocation{
				City:        city,
				State:       state,
				Coordinates: harvest.Coordinates,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if farmer != nil {
		record.Metadata.Location.FarmName = farmer.FarmName
	}

	// The unique index on the code value backs up the random suffix; a
	// collision just means we draw again.
	for attempt := 0; ; attempt++ {
		record.Code = generateCode(harvest.BatchID)
		s.mirrorImage(ctx, record)
		err = s.store.InsertCode(ctx, record)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateCode) || attempt >= issueRetries {
			return nil, fmt.Errorf("storing QR code: %w", err)
		}
	}

	// Denormalized write-back onto the harvest. If it fails the freshly
	// created record is compensated away so readers never see half a write.
	if err := s.store.SetHarvestCode(ctx, hid, &models.HarvestQRCode{Image: image, Payload: payload}, now); err != nil {
		if _, delErr := s.store.DeleteCode(ctx, record.ID); delErr != nil {
			log.Printf("Failed to roll back QR code %s after harvest update error: %v", record.Code, delErr)
		}
		return nil, fmt.Errorf("updating harvest with QR code: %w", err)
	}

	if s.Anchor != nil {
		digest := sha256.Sum256(payloadJSON)
		if err := s.Anchor.AnchorIssuance(ctx, record.Code, record.BatchID, hex.EncodeToString(digest[:])); err != nil {
			log.Printf("Failed to anchor issuance of %s on ledger: %v", record.Code, err)
		}
	}

	return record, nil
}

// buildPayload assembles the data embedded in the scannable image. Caller
// extension fields are merged first so they can never clobber the core keys.
func (s *Service) buildPayload(h *models.Harvest, farmerID string, now time.Time, custom map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(custom)+6)
	for k, v := range custom {
		payload[k] = v
	}
	payload["batchId"] = h.BatchID
	payload["cropType"] = h.CropType
	payload["farmerId"] = farmerID
	payload["harvestDate"] = h.HarvestDate.Format("2006-01-02")
	payload["verificationUrl"] = fmt.Sprintf("%s/verify/%s", strings.TrimRight(s.cfg.BaseURL, "/"), h.BatchID)
	payload["timestamp"] = now.UTC().Format(time.RFC3339)
	return payload
}

func (s *Service) mirrorImage(ctx context.Context, record *models.QRCode) {
	if s.Mirror == nil {
		return
	}
	raw, err := imageBytes(record)
	if err != nil {
		log.Printf("Skipping S3 mirror for %s: %v", record.Code, err)
		return
	}
	url, err := s.Mirror.UploadFile(ctx, bytes.NewReader(raw), fmt.Sprintf("qrcodes/%s.png", record.Code))
	if err != nil {
		log.Printf("Failed to mirror QR image %s to S3: %v", record.Code, err)
		return
	}
	record.ImageURL = url
}

// generateCode builds the unique human-readable identifier
// "QR-{batchID}-{6-char suffix}".
func generateCode(batchID string) string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("QR-%s-%s", batchID, suffix)
}

func mustObjectID(hexID string) primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(hexID)
	return oid
}
