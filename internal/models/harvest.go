// server/internal/models/harvest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Harvest statuses. A QR code can only be issued while the harvest is
// approved or listed.
const (
	HarvestStatusPending  = "pending"
	HarvestStatusApproved = "approved"
	HarvestStatusListed   = "listed"
	HarvestStatusSold     = "sold"
	HarvestStatusRejected = "rejected"
)

// HarvestQRCode is the denormalized copy of an issued code kept on the
// harvest so marketplace pages can render it without a join. It is written
// by the issuer and cleared again when the code is deleted.
type HarvestQRCode struct {
	Image   string                 `bson:"image" json:"image"`
	Payload map[string]interface{} `bson:"payload" json:"payload"`
}

type Harvest struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID      string             `bson:"batchID" json:"batchID"` // User-friendly unique ID, e.g. "BATCH-20260830-X4T9"
	FarmerID     string             `bson:"farmerID" json:"farmerID"`
	CropType     string             `bson:"cropType" json:"cropType"`
	Quantity     Quantity           `bson:"quantity" json:"quantity"`
	QualityGrade string             `bson:"qualityGrade,omitempty" json:"qualityGrade,omitempty"`
	HarvestDate  time.Time          `bson:"harvestDate" json:"harvestDate"`
	Location     string             `bson:"location" json:"location"` // free text, e.g. "Lagos, Lagos State"
	Coordinates  *GeoPoint          `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Status       string             `bson:"status" json:"status"`
	QRCode       *HarvestQRCode     `bson:"qrCode,omitempty" json:"qrCode,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Issuable reports whether a QR code may be issued for this harvest.
func (h *Harvest) Issuable() bool {
	return h.Status == HarvestStatusApproved || h.Status == HarvestStatusListed
}
