// server/internal/provenance/memstore.go
package provenance

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agritrace-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory Store used by the service tests. It mirrors the
// Mongo implementation's semantics: last-writer-wins document updates, a
// separate append-only scan log, and code uniqueness on insert.
type MemStore struct {
	mu       sync.RWMutex
	codes    map[primitive.ObjectID]models.QRCode
	scans    []models.Scan
	harvests map[primitive.ObjectID]models.Harvest
	users    map[primitive.ObjectID]models.User
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		codes:    make(map[primitive.ObjectID]models.QRCode),
		harvests: make(map[primitive.ObjectID]models.Harvest),
		users:    make(map[primitive.ObjectID]models.User),
	}
}

// PutHarvest seeds a harvest, assigning an id when missing.
func (m *MemStore) PutHarvest(h models.Harvest) models.Harvest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	m.harvests[h.ID] = h
	return h
}

// PutUser seeds a user, assigning an id when missing.
func (m *MemStore) PutUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = u
	return u
}

func (m *MemStore) InsertCode(ctx context.Context, code *models.QRCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.Code == code.Code {
			return ErrDuplicateCode
		}
	}
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	m.codes[code.ID] = *code
	return nil
}

func (m *MemStore) CodeByID(ctx context.Context, id primitive.ObjectID) (*models.QRCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.codes[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *MemStore) CodeByHarvest(ctx context.Context, harvestID string) (*models.QRCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.codes {
		if c.HarvestID == harvestID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CodeByBatch(ctx context.Context, batchID string) (*models.QRCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.codes {
		if c.BatchID == batchID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CodesByFarmer(ctx context.Context, farmerID string) ([]models.QRCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.QRCode
	for _, c := range m.codes {
		if c.FarmerID == farmerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) ListCodes(ctx context.Context, f ListFilter) ([]models.QRCode, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []models.QRCode
	for _, c := range m.codes {
		if c.FarmerID != f.FarmerID {
			continue
		}
		if f.Status != "" && c.EffectiveStatus(f.Now) != f.Status {
			continue
		}
		if f.CropType != "" && c.Metadata.CropType != f.CropType {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(c.Code), needle) &&
				!strings.Contains(strings.ToLower(c.BatchID), needle) &&
				!strings.Contains(strings.ToLower(c.Metadata.CropType), needle) {
				continue
			}
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if f.Skip >= total {
		return nil, total, nil
	}
	matched = matched[f.Skip:]
	if f.Limit > 0 && int64(len(matched)) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *MemStore) SetCodeStatus(ctx context.Context, id primitive.ObjectID, from, to string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = now
	m.codes[id] = c
	return true, nil
}

func (m *MemStore) DeleteCode(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[id]; !ok {
		return false, nil
	}
	delete(m.codes, id)
	return true, nil
}

func (m *MemStore) ReconcileExpired(ctx context.Context, farmerID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.codes {
		if farmerID != "" && c.FarmerID != farmerID {
			continue
		}
		if c.Status == models.CodeStatusActive && now.After(c.ExpiresAt) {
			c.Status = models.CodeStatusExpired
			c.UpdatedAt = now
			m.codes[id] = c
			n++
		}
	}
	return n, nil
}

func (m *MemStore) AppendScan(ctx context.Context, scan *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scan.ID.IsZero() {
		scan.ID = primitive.NewObjectID()
	}
	m.scans = append(m.scans, *scan)
	if c, ok := m.codes[scan.CodeID]; ok {
		c.ScanCount++
		t := scan.ScannedAt
		c.LastScannedAt = &t
		c.UpdatedAt = scan.ScannedAt
		m.codes[scan.CodeID] = c
	}
	return nil
}

func (m *MemStore) ScansByCode(ctx context.Context, codeID primitive.ObjectID) ([]models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Scan
	for _, s := range m.scans {
		if s.CodeID == codeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.Before(out[j].ScannedAt) })
	return out, nil
}

func (m *MemStore) DeleteScansByCode(ctx context.Context, codeID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.scans[:0]
	for _, s := range m.scans {
		if s.CodeID != codeID {
			kept = append(kept, s)
		}
	}
	m.scans = kept
	return nil
}

func (m *MemStore) RecordDownload(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return false, nil
	}
	c.DownloadCount++
	t := now
	c.LastDownloadedAt = &t
	c.UpdatedAt = now
	m.codes[id] = c
	return true, nil
}

func (m *MemStore) HarvestByID(ctx context.Context, id primitive.ObjectID) (*models.Harvest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.harvests[id]; ok {
		return &h, nil
	}
	return nil, nil
}

func (m *MemStore) HarvestsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]models.Harvest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.Harvest, len(ids))
	for _, id := range ids {
		if h, ok := m.harvests[id]; ok {
			out[id.Hex()] = h
		}
	}
	return out, nil
}

func (m *MemStore) SetHarvestCode(ctx context.Context, harvestID primitive.ObjectID, qr *models.HarvestQRCode, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.harvests[harvestID]
	if !ok {
		return nil
	}
	h.QRCode = qr
	h.UpdatedAt = now
	m.harvests[harvestID] = h
	return nil
}

func (m *MemStore) ClearHarvestCode(ctx context.Context, harvestID primitive.ObjectID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.harvests[harvestID]
	if !ok {
		return nil
	}
	h.QRCode = nil
	h.UpdatedAt = now
	m.harvests[harvestID] = h
	return nil
}

func (m *MemStore) FarmerByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}
