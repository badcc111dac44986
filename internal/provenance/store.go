// server/internal/provenance/store.go
package provenance

import (
	"context"
	"errors"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateCode is returned by InsertCode when the unique index on the
// code value rejects the insert. The issuer retries with a fresh suffix.
var ErrDuplicateCode = errors.New("duplicate code")

// ListFilter narrows a farmer-scoped page of codes. Status is matched
// against the effective status at Now, so an "active" record past its
// expiry filters as "expired".
type ListFilter struct {
	FarmerID string
	Status   string
	CropType string
	// Search matches case-insensitively against code, batchID and
	// metadata.cropType.
	Search string
	Skip   int64
	Limit  int64
	Now    time.Time
}

// Store is the persistence boundary of the QR code engine. Lookups return
// (nil, nil) when the document does not exist; the service layer translates
// that into its NotFound taxonomy.
type Store interface {
	// QR codes
	InsertCode(ctx context.Context, code *models.QRCode) error
	CodeByID(ctx context.Context, id primitive.ObjectID) (*models.QRCode, error)
	CodeByHarvest(ctx context.Context, harvestID string) (*models.QRCode, error)
	CodeByBatch(ctx context.Context, batchID string) (*models.QRCode, error)
	CodesByFarmer(ctx context.Context, farmerID string) ([]models.QRCode, error)
	ListCodes(ctx context.Context, filter ListFilter) ([]models.QRCode, int64, error)
	// SetCodeStatus flips status from "from" to "to" in one conditional
	// update and reports whether a document matched.
	SetCodeStatus(ctx context.Context, id primitive.ObjectID, from, to string, now time.Time) (bool, error)
	DeleteCode(ctx context.Context, id primitive.ObjectID) (bool, error)
	// ReconcileExpired flips every stale "active" record past its expiry to
	// "expired". farmerID may be empty to sweep all farmers. Idempotent.
	ReconcileExpired(ctx context.Context, farmerID string, now time.Time) (int64, error)

	// Scan log (separate append-only collection)
	AppendScan(ctx context.Context, scan *models.Scan) error
	ScansByCode(ctx context.Context, codeID primitive.ObjectID) ([]models.Scan, error)
	DeleteScansByCode(ctx context.Context, codeID primitive.ObjectID) error

	// Download counters
	RecordDownload(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)

	// Harvests
	HarvestByID(ctx context.Context, id primitive.ObjectID) (*models.Harvest, error)
	HarvestsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]models.Harvest, error)
	SetHarvestCode(ctx context.Context, harvestID primitive.ObjectID, qr *models.HarvestQRCode, now time.Time) error
	ClearHarvestCode(ctx context.Context, harvestID primitive.ObjectID, now time.Time) error

	// Users
	FarmerByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}
