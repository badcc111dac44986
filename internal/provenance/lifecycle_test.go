// server/internal/provenance/lifecycle_test.go
package provenance

import (
	"context"
	"testing"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/stretchr/testify/require"
)

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	f.advance(time.Hour)
	revoked, err := f.svc.Revoke(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusRevoked, revoked.Status)
	require.Equal(t, f.now, revoked.UpdatedAt)

	stored, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusRevoked, stored.Status)
}

func TestRevokeIsIrreversibleAndNotRepeatable(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	_, err := f.svc.Revoke(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)

	_, err = f.svc.Revoke(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.MarkVerified(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)
}

func TestRevokeExpiredCodePersistsExpiry(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	f.advance(366 * 24 * time.Hour)
	_, err := f.svc.Revoke(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)

	// The rejected revoke doubles as the lazy write that persists expiry.
	stored, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusExpired, stored.Status)
}

func TestRevokeScopedToOwner(t *testing.T) {
	f := newFixture(t)
	other := f.store.PutUser(models.User{Email: "bode@other.ng", Role: "farmer"})
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	_, err := f.svc.Revoke(context.Background(), other.ID.Hex(), record.ID.Hex())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkVerified(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	verified, err := f.svc.MarkVerified(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusVerified, verified.Status)

	// Terminal: no further transitions.
	_, err = f.svc.Revoke(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.MarkVerified(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)
}

func TestMarkVerifiedRejectsExpiredCode(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	f.advance(366 * 24 * time.Hour)
	_, err := f.svc.MarkVerified(context.Background(), f.farmerID(), record.ID.Hex())
	require.ErrorIs(t, err, ErrConflict)
}

func TestExpiryIsDerivedWithoutAWrite(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)

	f.advance(366 * 24 * time.Hour)
	detail, err := f.svc.GetByID(context.Background(), f.farmerID(), record.ID.Hex())
	require.NoError(t, err)
	require.True(t, detail.IsExpired)
	require.Equal(t, models.CodeStatusExpired, detail.Status)

	// Persisted status still lags until a write or reconcile pass.
	stored, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusActive, stored.Status)
}

func TestReconcileExpired(t *testing.T) {
	f := newFixture(t)
	stale1 := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize"))
	stale2 := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Kano, Kano State", "Rice"))
	revoked := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Abuja", "Yam"))
	_, err := f.svc.Revoke(context.Background(), f.farmerID(), revoked.ID.Hex())
	require.NoError(t, err)

	f.advance(360 * 24 * time.Hour)
	fresh := f.issue(f.seedHarvest(models.HarvestStatusApproved, "Jos, Plateau State", "Tomato"))

	f.advance(10 * 24 * time.Hour)
	n, err := f.svc.ReconcileExpired(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	for _, id := range []primitive.ObjectID{stale1.ID, stale2.ID} {
		stored, err := f.store.CodeByID(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, models.CodeStatusExpired, stored.Status)
	}
	storedFresh, err := f.store.CodeByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusActive, storedFresh.Status)
	storedRevoked, err := f.store.CodeByID(context.Background(), revoked.ID)
	require.NoError(t, err)
	require.Equal(t, models.CodeStatusRevoked, storedRevoked.Status)

	// Idempotent: a second sweep finds nothing.
	n, err = f.svc.ReconcileExpired(context.Background(), f.farmerID())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDeleteRemovesRecordScansAndHarvestCopy(t *testing.T) {
	f := newFixture(t)
	h := f.seedHarvest(models.HarvestStatusApproved, "Lagos, Lagos State", "Maize")
	record := f.issue(h)
	_, err := f.svc.RecordScan(context.Background(), record.ID.Hex(), ScanInput{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), f.farmerID(), record.ID.Hex()))

	gone, err := f.store.CodeByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	scans, err := f.store.ScansByCode(context.Background(), record.ID)
	require.NoError(t, err)
	require.Empty(t, scans)

	cleared, err := f.store.HarvestByID(context.Background(), h.ID)
	require.NoError(t, err)
	require.Nil(t, cleared.QRCode)

	// The harvest is issuable again afterwards.
	_, err = f.svc.Issue(context.Background(), f.farmerID(), h.ID.Hex(), nil)
	require.NoError(t, err)
}

func TestDeleteUnknownCode(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Delete(context.Background(), f.farmerID(), primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, ErrNotFound)
}
