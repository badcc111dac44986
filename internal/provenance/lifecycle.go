// server/internal/provenance/lifecycle.go
package provenance

import (
	"context"
	"fmt"
	"log"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Revoke moves an active code to revoked. Revocation is irreversible and is
// refused for any record that is no longer active, including records whose
// validity window has already lapsed.
func (s *Service) Revoke(ctx context.Context, farmerID, id string) (*models.QRCode, error) {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if code.Status == models.CodeStatusActive && code.IsExpired(now) {
		// Lazy correction: this write path is the first to touch the record
		// after expiry, so persist the derived state before rejecting.
		if _, err := s.store.SetCodeStatus(ctx, code.ID, models.CodeStatusActive, models.CodeStatusExpired, now); err != nil {
			return nil, fmt.Errorf("persisting expiry: %w", err)
		}
		return nil, conflictf("QR code %s is not active (expired)", code.Code)
	}
	if code.Status != models.CodeStatusActive {
		return nil, conflictf("QR code %s is not active (status: %s)", code.Code, code.Status)
	}

	// Conditional update: a concurrent revoke or expiry loses the race here
	// and reports the conflict instead of double-applying.
	matched, err := s.store.SetCodeStatus(ctx, code.ID, models.CodeStatusActive, models.CodeStatusRevoked, now)
	if err != nil {
		return nil, fmt.Errorf("revoking QR code: %w", err)
	}
	if !matched {
		return nil, conflictf("QR code %s is not active", code.Code)
	}

	code.Status = models.CodeStatusRevoked
	code.UpdatedAt = now

	if s.Anchor != nil {
		if err := s.Anchor.AnchorRevocation(ctx, code.Code); err != nil {
			log.Printf("Failed to anchor revocation of %s on ledger: %v", code.Code, err)
		}
	}
	return code, nil
}

// MarkVerified records the externally decided terminal "verified" state.
// The trigger lives outside this engine; the only precondition enforced here
// is that the record is still active and within its validity window.
func (s *Service) MarkVerified(ctx context.Context, farmerID, id string) (*models.QRCode, error) {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if code.EffectiveStatus(now) != models.CodeStatusActive {
		return nil, conflictf("QR code %s is not active (status: %s)", code.Code, code.EffectiveStatus(now))
	}

	matched, err := s.store.SetCodeStatus(ctx, code.ID, models.CodeStatusActive, models.CodeStatusVerified, now)
	if err != nil {
		return nil, fmt.Errorf("marking QR code verified: %w", err)
	}
	if !matched {
		return nil, conflictf("QR code %s is not active", code.Code)
	}

	code.Status = models.CodeStatusVerified
	code.UpdatedAt = now
	return code, nil
}

// Delete removes a code, its scan log, and the denormalized copy on the
// harvest. The record removal comes first; a failure clearing the harvest
// leaves only a stale convenience copy behind.
func (s *Service) Delete(ctx context.Context, farmerID, id string) error {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteCode(ctx, code.ID)
	if err != nil {
		return fmt.Errorf("deleting QR code: %w", err)
	}
	if !deleted {
		return notFoundf("QR code %q not found", id)
	}

	if err := s.store.DeleteScansByCode(ctx, code.ID); err != nil {
		log.Printf("Failed to delete scan log for %s: %v", code.Code, err)
	}

	hid, err := primitive.ObjectIDFromHex(code.HarvestID)
	if err == nil {
		if err := s.store.ClearHarvestCode(ctx, hid, s.now()); err != nil {
			return fmt.Errorf("clearing QR code from harvest: %w", err)
		}
	}
	return nil
}

// ReconcileExpired is the idempotent batch sweep that persists "expired" for
// every stale active record of the farmer. Reads stay correct without it via
// the derived flag; this keeps the stored status from drifting forever.
func (s *Service) ReconcileExpired(ctx context.Context, farmerID string) (int64, error) {
	n, err := s.store.ReconcileExpired(ctx, farmerID, s.now())
	if err != nil {
		return 0, fmt.Errorf("reconciling expired QR codes: %w", err)
	}
	return n, nil
}
