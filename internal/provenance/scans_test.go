// server/internal/provenance/scans_test.go
package provenance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stretchr/testify/require"
)

func TestRecordScanCountsEveryCall(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	inputs := []ScanInput{
		{ActorType: "consumer", Location: "Ikeja"},
		{UserID: f.farmerID(), ActorType: "farmer", ActorName: "Ada Obi"},
		{ActorType: "inspector", Outcome: models.ScanOutcomeFailed, Notes: "label smudged"},
	}
	var lastScan time.Time
	for i, in := range inputs {
		f.advance(time.Minute)
		lastScan = f.now
		event, err := f.svc.RecordScan(context.Background(), record.ID.Hex(), in)
		require.NoError(t, err)
		require.EqualValues(t, i+1, event.ScanCount)
	}

	detail, err := f.svc.GetByID(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)
	require.EqualValues(t, 3, detail.ScanCount)
	require.Len(t, detail.Scans, 3)
	require.NotNil(t, detail.LastScannedAt)
	require.Equal(t, lastScan, *detail.LastScannedAt)

	// Chronological audit log with the reported actors intact.
	require.Equal(t, "consumer", detail.Scans[0].ActorType)
	require.Equal(t, models.ScanOutcomeSuccess, detail.Scans[0].Outcome)
	require.Equal(t, "Ada Obi", detail.Scans[1].ActorName)
	require.Equal(t, models.ScanOutcomeFailed, detail.Scans[2].Outcome)
	require.Equal(t, "label smudged", detail.Scans[2].Notes)
}

func TestRecordScanAnonymous(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	event, err := f.svc.RecordScan(context.Background(), record.ID.Hex(), ScanInput{
		UserAgent: "Mozilla/5.0",
		IP:        "102.89.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, models.ScanOutcomeSuccess, event.Outcome)

	scans, err := f.store.ScansByCode(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Empty(t, scans[0].UserID)
	require.Equal(t, "Mozilla/5.0", scans[0].Device.UserAgent)
	require.Equal(t, "102.89.0.1", scans[0].Device.IP)
}

func TestRecordScanEventForLiveFeed(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	event, err := f.svc.RecordScan(context.Background(), record.ID.Hex(), ScanInput{})
	require.NoError(t, err)
	require.Equal(t, "scan", event.Type)
	require.Equal(t, f.farmerID(), event.FarmerID)
	require.Equal(t, record.Code, event.Code)
	require.Equal(t, h.BatchID, event.BatchID)
	require.Equal(t, "Maize", event.CropType)
	require.Equal(t, f.now.UTC().Format(time.RFC3339), event.ScannedAt)

	// The owner id stays out of the broadcast payload.
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	require.NotContains(t, string(raw), f.farmerID())
}

func TestRecordScanRejectsUnknownOutcome(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	_, err := f.svc.RecordScan(context.Background(), record.ID.Hex(), ScanInput{Outcome: "maybe"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordScanUnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RecordScan(context.Background(), primitive.NewObjectID().Hex(), ScanInput{})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.RecordScan(context.Background(), "nope", ScanInput{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestImageIsAPureRead(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	filename, data, err := f.svc.Image(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, record.Code+".png", filename)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, h.BatchID, payload["batchId"])

	stored, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Zero(t, stored.DownloadCount)
	require.Nil(t, stored.LastDownloadedAt)
}

func TestRecordDownload(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	require.NoError(t, f.svc.RecordDownload(context.Background(), f.farmerID(), record.ID.Hex()))
	f.advance(time.Hour)
	require.NoError(t, f.svc.RecordDownload(context.Background(), f.farmerID(), record.ID.Hex()))

	stored, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, stored.DownloadCount)
	require.NotNil(t, stored.LastDownloadedAt)
	require.Equal(t, f.now, *stored.LastDownloadedAt)
}

func TestDownloadScopedToOwner(t *testing.T) {
	f := newFixture(t)
	other := f.store.PutUser(models.User{Email: "bode@other.ng", Role: "farmer"})
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	_, _, err := f.svc.Image(context.Background(), other.ID.Hex(), record.ID.Hex())
	require.ErrorIs(t, err, ErrNotFound)
	err = f.svc.RecordDownload(context.Background(), other.ID.Hex(), record.ID.Hex())
	require.ErrorIs(t, err, ErrNotFound)
}
