// server/internal/provenance/service_test.go
package provenance

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"agritrace-api-server/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	fail bool
}

func (f *fakeEncoder) Encode(payload []byte) (string, error) {
	if f.fail {
		return "", errors.New("encoder exploded")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload), nil
}

// fixture wires a service onto the in-memory store with a controllable clock.
type fixture struct {
	t       *testing.T
	store   *MemStore
	encoder *fakeEncoder
	svc     *Service
	farmer  models.User
	now     time.Time
	seq     int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:       t,
		store:   NewMemStore(),
		encoder: &fakeEncoder{},
		now:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.encoder, ServiceConfig{
		BaseURL:      "https://agritrace.example.com",
		DefaultState: "Nigeria",
		ValidityDays: 365,
	})
	f.svc.now = func() time.Time { return f.now }
	f.farmer = f.store.PutUser(models.User{
		Email:    "ada@greenacres.ng",
		Name:     "Ada Obi",
		Role:     "farmer",
		FarmName: "Green Acres",
		Status:   "active",
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) farmerID() string {
	return f.farmer.ID.Hex()
}

func (f *fixture) seedHarvest(status, location, cropType string) models.Harvest {
	f.seq++
	return f.store.PutHarvest(models.Harvest{
		BatchID:      fmt.Sprintf("BATCH-20260810-%04d", f.seq),
		FarmerID:     f.farmerID(),
		CropType:     cropType,
		Quantity:     models.Quantity{Unit: "kg", Value: 250},
		QualityGrade: "A",
		HarvestDate:  time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Location:     location,
		Status:       status,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	})
}

func (f *fixture) issue(h models.Harvest) *models.QRCode {
	f.t.Helper()
	record, err := f.svc.Issue(context.Background(), f.farmerID(), h.ID.Hex(), nil)
	require.NoError(f.t, err)
	return record
}
