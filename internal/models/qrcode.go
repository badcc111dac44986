// server/internal/models/qrcode.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QR code statuses. "active" is the initial state; "expired" is reached
// automatically once ExpiresAt passes; "revoked" and "verified" are terminal
// and only reachable from "active".
const (
	CodeStatusActive   = "active"
	CodeStatusExpired  = "expired"
	CodeStatusRevoked  = "revoked"
	CodeStatusVerified = "verified"
)

// Scan outcomes recorded in the audit log.
const (
	ScanOutcomeSuccess  = "success"
	ScanOutcomeFailed   = "failed"
	ScanOutcomeTampered = "tampered"
)

// CodeLocation is the denormalized location snapshot taken from the harvest
// at issuance time. It is never re-synced afterwards.
type CodeLocation struct {
	FarmName    string    `bson:"farmName,omitempty" json:"farmName,omitempty"`
	City        string    `bson:"city" json:"city"`
	State       string    `bson:"state" json:"state"`
	Coordinates *GeoPoint `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// CodeMetadata is the display snapshot copied from the harvest at issuance.
type CodeMetadata struct {
	CropType     string       `bson:"cropType" json:"cropType"`
	Quantity     Quantity     `bson:"quantity" json:"quantity"`
	QualityGrade string       `bson:"qualityGrade,omitempty" json:"qualityGrade,omitempty"`
	HarvestDate  time.Time    `bson:"harvestDate" json:"harvestDate"`
	Location     CodeLocation `bson:"location" json:"location"`
}

// ScanDevice carries whatever the scanning client reported about itself.
type ScanDevice struct {
	UserAgent   string    `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	IP          string    `bson:"ip,omitempty" json:"ip,omitempty"`
	Coordinates *GeoPoint `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Scan is one verification attempt against a code. Scans are append-only:
// they live in their own collection keyed by CodeID and are never mutated.
type Scan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CodeID    primitive.ObjectID `bson:"codeID" json:"codeID"`
	ScannedAt time.Time          `bson:"scannedAt" json:"scannedAt"`
	// Actor fields are optional: anonymous scans are permitted.
	UserID    string     `bson:"userID,omitempty" json:"userID,omitempty"`
	ActorType string     `bson:"actorType,omitempty" json:"actorType,omitempty"` // e.g. "consumer", "farmer", "inspector"
	ActorName string     `bson:"actorName,omitempty" json:"actorName,omitempty"`
	Location  string     `bson:"location,omitempty" json:"location,omitempty"`
	Outcome   string     `bson:"outcome" json:"outcome"` // success | failed | tampered
	Device    ScanDevice `bson:"device,omitempty" json:"device"`
	Notes     string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// QRCode is the verification record issued for one harvest batch.
type QRCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HarvestID string             `bson:"harvestID" json:"harvestID"`
	FarmerID  string             `bson:"farmerID" json:"farmerID"`
	Code      string             `bson:"code" json:"code"` // "QR-{batchID}-{6-char suffix}", globally unique
	BatchID   string             `bson:"batchID" json:"batchID"`
	// Image is the encoded artifact as a data URL, produced once at issuance.
	Image string `bson:"image" json:"image"`
	// ImageURL is the optional S3/CloudFront mirror of the PNG.
	ImageURL string                 `bson:"imageURL,omitempty" json:"imageURL,omitempty"`
	Payload  map[string]interface{} `bson:"payload" json:"payload"`
	Status   string                 `bson:"status" json:"status"`
	// ExpiresAt is fixed at issuance time + validity window and never changes.
	ExpiresAt        time.Time    `bson:"expiresAt" json:"expiresAt"`
	ScanCount        int64        `bson:"scanCount" json:"scanCount"`
	LastScannedAt    *time.Time   `bson:"lastScannedAt,omitempty" json:"lastScannedAt,omitempty"`
	DownloadCount    int64        `bson:"downloadCount" json:"downloadCount"`
	LastDownloadedAt *time.Time   `bson:"lastDownloadedAt,omitempty" json:"lastDownloadedAt,omitempty"`
	Metadata         CodeMetadata `bson:"metadata" json:"metadata"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// IsExpired reports whether the code is past its validity window. This is
// the authoritative expiry check: the persisted status may lag behind until
// the next write or reconcile pass.
func (q *QRCode) IsExpired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// EffectiveStatus overlays the derived expiry flag on the persisted status.
func (q *QRCode) EffectiveStatus(now time.Time) string {
	if q.Status == CodeStatusActive && q.IsExpired(now) {
		return CodeStatusExpired
	}
	return q.Status
}
