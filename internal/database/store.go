// server/internal/database/store.go
package database

import (
	"context"
	"regexp"
	"time"

	"agritrace-api-server/internal/models"
	"agritrace-api-server/internal/provenance"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the MongoDB implementation of the provenance store. Scan entries
// live in their own append-only collection; the rolling counters on the code
// document are maintained with $inc/$set so concurrent scans never clobber
// each other's log entries.
type Store struct {
	DB *mongo.Database
}

var _ provenance.Store = (*Store)(nil)

func NewStore(db *mongo.Database) *Store {
	return &Store{DB: db}
}

func (s *Store) codes() *mongo.Collection    { return s.DB.Collection(CollCodes) }
func (s *Store) scans() *mongo.Collection    { return s.DB.Collection(CollScans) }
func (s *Store) harvests() *mongo.Collection { return s.DB.Collection(CollHarvests) }
func (s *Store) users() *mongo.Collection    { return s.DB.Collection(CollUsers) }

func (s *Store) InsertCode(ctx context.Context, code *models.QRCode) error {
	result, err := s.codes().InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return provenance.ErrDuplicateCode
		}
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		code.ID = oid
	}
	return nil
}

func (s *Store) findOneCode(ctx context.Context, filter bson.M) (*models.QRCode, error) {
	var code models.QRCode
	err := s.codes().FindOne(ctx, filter).Decode(&code)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (s *Store) CodeByID(ctx context.Context, id primitive.ObjectID) (*models.QRCode, error) {
	return s.findOneCode(ctx, bson.M{"_id": id})
}

func (s *Store) CodeByHarvest(ctx context.Context, harvestID string) (*models.QRCode, error) {
	return s.findOneCode(ctx, bson.M{"harvestID": harvestID})
}

func (s *Store) CodeByBatch(ctx context.Context, batchID string) (*models.QRCode, error) {
	return s.findOneCode(ctx, bson.M{"batchID": batchID})
}

func (s *Store) CodesByFarmer(ctx context.Context, farmerID string) ([]models.QRCode, error) {
	cursor, err := s.codes().Find(ctx, bson.M{"farmerID": farmerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var codes []models.QRCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// effectiveStatusFilter translates a status filter into a query over the
// persisted status overlaid with the expiry window, so stale "active"
// documents past expiresAt are matched as expired.
func effectiveStatusFilter(status string, now time.Time) bson.M {
	switch status {
	case models.CodeStatusActive:
		return bson.M{"status": models.CodeStatusActive, "expiresAt": bson.M{"$gt": now}}
	case models.CodeStatusExpired:
		return bson.M{"$or": bson.A{
			bson.M{"status": models.CodeStatusExpired},
			bson.M{"status": models.CodeStatusActive, "expiresAt": bson.M{"$lte": now}},
		}}
	default:
		return bson.M{"status": status}
	}
}

func (s *Store) ListCodes(ctx context.Context, f provenance.ListFilter) ([]models.QRCode, int64, error) {
	conds := bson.A{bson.M{"farmerID": f.FarmerID}}
	if f.Status != "" {
		conds = append(conds, effectiveStatusFilter(f.Status, f.Now))
	}
	if f.CropType != "" {
		conds = append(conds, bson.M{"metadata.cropType": f.CropType})
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"code": pattern},
			bson.M{"batchID": pattern},
			bson.M{"metadata.cropType": pattern},
		}})
	}
	filter := bson.M{"$and": conds}

	total, err := s.codes().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)
	cursor, err := s.codes().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var codes []models.QRCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

func (s *Store) SetCodeStatus(ctx context.Context, id primitive.ObjectID, from, to string, now time.Time) (bool, error) {
	result, err := s.codes().UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": now}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (s *Store) DeleteCode(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.codes().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (s *Store) ReconcileExpired(ctx context.Context, farmerID string, now time.Time) (int64, error) {
	filter := bson.M{"status": models.CodeStatusActive, "expiresAt": bson.M{"$lte": now}}
	if farmerID != "" {
		filter["farmerID"] = farmerID
	}
	result, err := s.codes().UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"status": models.CodeStatusExpired, "updatedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (s *Store) AppendScan(ctx context.Context, scan *models.Scan) error {
	result, err := s.scans().InsertOne(ctx, scan)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		scan.ID = oid
	}

	// Counter bump is atomic on the code document; the log entry above is
	// already durable even if two scans race on the counters.
	_, err = s.codes().UpdateOne(ctx,
		bson.M{"_id": scan.CodeID},
		bson.M{
			"$inc": bson.M{"scanCount": 1},
			"$set": bson.M{"lastScannedAt": scan.ScannedAt, "updatedAt": scan.ScannedAt},
		},
	)
	return err
}

func (s *Store) ScansByCode(ctx context.Context, codeID primitive.ObjectID) ([]models.Scan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scannedAt", Value: 1}})
	cursor, err := s.scans().Find(ctx, bson.M{"codeID": codeID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scans []models.Scan
	if err := cursor.All(ctx, &scans); err != nil {
		return nil, err
	}
	return scans, nil
}

func (s *Store) DeleteScansByCode(ctx context.Context, codeID primitive.ObjectID) error {
	_, err := s.scans().DeleteMany(ctx, bson.M{"codeID": codeID})
	return err
}

func (s *Store) RecordDownload(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	result, err := s.codes().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"downloadCount": 1},
			"$set": bson.M{"lastDownloadedAt": now, "updatedAt": now},
		},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (s *Store) HarvestByID(ctx context.Context, id primitive.ObjectID) (*models.Harvest, error) {
	var harvest models.Harvest
	err := s.harvests().FindOne(ctx, bson.M{"_id": id}).Decode(&harvest)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &harvest, nil
}

func (s *Store) HarvestsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]models.Harvest, error) {
	if len(ids) == 0 {
		return map[string]models.Harvest{}, nil
	}
	cursor, err := s.harvests().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var harvests []models.Harvest
	if err := cursor.All(ctx, &harvests); err != nil {
		return nil, err
	}
	out := make(map[string]models.Harvest, len(harvests))
	for _, h := range harvests {
		out[h.ID.Hex()] = h
	}
	return out, nil
}

func (s *Store) SetHarvestCode(ctx context.Context, harvestID primitive.ObjectID, qr *models.HarvestQRCode, now time.Time) error {
	_, err := s.harvests().UpdateOne(ctx,
		bson.M{"_id": harvestID},
		bson.M{"$set": bson.M{"qrCode": qr, "updatedAt": now}},
	)
	return err
}

func (s *Store) ClearHarvestCode(ctx context.Context, harvestID primitive.ObjectID, now time.Time) error {
	_, err := s.harvests().UpdateOne(ctx,
		bson.M{"_id": harvestID},
		bson.M{
			"$unset": bson.M{"qrCode": ""},
			"$set":   bson.M{"updatedAt": now},
		},
	)
	return err
}

func (s *Store) FarmerByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
