// server/internal/provenance/download.go
package provenance

import (
	"context"
	"fmt"
)

// Image serves the raw PNG bytes of the code's artifact. This is a pure
// read: retrieval counting is the separate RecordDownload mutation, so this
// endpoint stays idempotent and cacheable.
func (s *Service) Image(ctx context.Context, farmerID, id string) (filename string, data []byte, err error) {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return "", nil, err
	}
	data, err = imageBytes(code)
	if err != nil {
		return "", nil, err
	}
	return code.Code + ".png", data, nil
}

// RecordDownload bumps the retrieval counters for a code the caller owns.
func (s *Service) RecordDownload(ctx context.Context, farmerID, id string) error {
	code, err := s.ownedCode(ctx, farmerID, id)
	if err != nil {
		return err
	}
	matched, err := s.store.RecordDownload(ctx, code.ID, s.now())
	if err != nil {
		return fmt.Errorf("recording download: %w", err)
	}
	if !matched {
		return notFoundf("QR code %q not found", id)
	}
	return nil
}
