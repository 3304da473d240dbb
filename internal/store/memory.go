package store

import (
	"context"
	"sort"
	"sync"

	"github.com/loomworks/stitchsync/models"
)

// In-memory fallback repositories used when the SQLite engine cannot be
// opened. Same contracts as the SQL implementations, minus durability:
// everything is lost when the process exits.

type memoryDesignRepository struct {
	mu    sync.RWMutex
	items map[string]models.OfflineDesign
}

// NewMemoryDesignRepository returns a non-persistent [DesignRepository].
func NewMemoryDesignRepository() DesignRepository {
	return &memoryDesignRepository{items: make(map[string]models.OfflineDesign)}
}

func (m *memoryDesignRepository) SaveDesign(_ context.Context, d models.OfflineDesign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[d.LocalID] = d
	return nil
}

func (m *memoryDesignRepository) GetDesign(_ context.Context, localID string) (models.OfflineDesign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.items[localID]
	if !ok {
		return models.OfflineDesign{}, ErrNotFound
	}
	return d, nil
}

func (m *memoryDesignRepository) GetDesignByServerID(_ context.Context, serverID string) (models.OfflineDesign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.items {
		if d.ServerID != nil && *d.ServerID == serverID {
			return d, nil
		}
	}
	return models.OfflineDesign{}, ErrNotFound
}

func (m *memoryDesignRepository) GetAllDesigns(_ context.Context) ([]models.OfflineDesign, error) {
	return m.filter(func(models.OfflineDesign) bool { return true }, false), nil
}

func (m *memoryDesignRepository) GetDesignsByStatus(_ context.Context, status models.SyncStatus) ([]models.OfflineDesign, error) {
	return m.filter(func(d models.OfflineDesign) bool { return d.SyncStatus == status }, true), nil
}

func (m *memoryDesignRepository) GetDesignsByFolder(_ context.Context, folderID string) ([]models.OfflineDesign, error) {
	return m.filter(func(d models.OfflineDesign) bool {
		return d.FolderID != nil && *d.FolderID == folderID
	}, false), nil
}

func (m *memoryDesignRepository) GetPendingPromotions(_ context.Context) ([]models.OfflineDesign, error) {
	return m.filter(func(d models.OfflineDesign) bool {
		return d.PromotionState == models.PromotionPending
	}, true), nil
}

func (m *memoryDesignRepository) CountDesignsByStatus(_ context.Context) (map[models.SyncStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[models.SyncStatus]int)
	for _, d := range m.items {
		counts[d.SyncStatus]++
	}
	return counts, nil
}

func (m *memoryDesignRepository) DeleteDesign(_ context.Context, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, localID)
	return nil
}

// filter returns matching designs ordered by last local modification;
// ascending mirrors the SQL index scans, descending the listing queries.
func (m *memoryDesignRepository) filter(keep func(models.OfflineDesign) bool, ascending bool) []models.OfflineDesign {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.OfflineDesign
	for _, d := range m.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastModifiedLocal.Equal(out[j].LastModifiedLocal) {
			if ascending {
				return out[i].LocalID < out[j].LocalID
			}
			return out[i].LocalID > out[j].LocalID
		}
		if ascending {
			return out[i].LastModifiedLocal.Before(out[j].LastModifiedLocal)
		}
		return out[i].LastModifiedLocal.After(out[j].LastModifiedLocal)
	})
	return out
}

type memoryQueueRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]models.SyncQueueItem
}

// NewMemoryQueueRepository returns a non-persistent [QueueRepository].
func NewMemoryQueueRepository() QueueRepository {
	return &memoryQueueRepository{items: make(map[int64]models.SyncQueueItem)}
}

func (m *memoryQueueRepository) InsertItem(_ context.Context, item models.SyncQueueItem) (models.SyncQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryQueueRepository) GetItem(_ context.Context, id int64) (models.SyncQueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return models.SyncQueueItem{}, ErrNotFound
	}
	return item, nil
}

func (m *memoryQueueRepository) GetItemsByDesign(_ context.Context, designID string) ([]models.SyncQueueItem, error) {
	return m.filter(func(it models.SyncQueueItem) bool { return it.DesignID == designID }), nil
}

func (m *memoryQueueRepository) GetPendingItemForDesign(_ context.Context, designID string, op models.SyncOperation) (models.SyncQueueItem, error) {
	matches := m.filter(func(it models.SyncQueueItem) bool {
		return it.DesignID == designID && it.Operation == op && it.Status == models.ItemPending
	})
	if len(matches) == 0 {
		return models.SyncQueueItem{}, ErrNotFound
	}
	return matches[0], nil
}

func (m *memoryQueueRepository) NextPendingItem(_ context.Context) (models.SyncQueueItem, error) {
	matches := m.filter(func(it models.SyncQueueItem) bool { return it.Status == models.ItemPending })
	if len(matches) == 0 {
		return models.SyncQueueItem{}, ErrNotFound
	}
	return matches[0], nil
}

func (m *memoryQueueRepository) ReplacePayload(_ context.Context, id int64, payload []byte) error {
	return m.update(id, func(it *models.SyncQueueItem) { it.Payload = payload })
}

func (m *memoryQueueRepository) SetItemStatus(_ context.Context, id int64, status models.QueueItemStatus) error {
	return m.update(id, func(it *models.SyncQueueItem) { it.Status = status })
}

func (m *memoryQueueRepository) MarkItemFailure(_ context.Context, id int64, lastError string, status models.QueueItemStatus) error {
	return m.update(id, func(it *models.SyncQueueItem) {
		it.RetryCount++
		it.LastError = lastError
		it.Status = status
	})
}

func (m *memoryQueueRepository) ResetItem(_ context.Context, id int64) error {
	return m.update(id, func(it *models.SyncQueueItem) {
		it.Status = models.ItemPending
		it.RetryCount = 0
		it.LastError = ""
	})
}

func (m *memoryQueueRepository) DeleteItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memoryQueueRepository) DeleteItemsByDesign(_ context.Context, designID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, it := range m.items {
		if it.DesignID == designID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memoryQueueRepository) GetItemsByStatus(_ context.Context, status models.QueueItemStatus) ([]models.SyncQueueItem, error) {
	return m.filter(func(it models.SyncQueueItem) bool { return it.Status == status }), nil
}

func (m *memoryQueueRepository) GetQueueStats(_ context.Context) (models.QueueStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.QueueStats
	for _, it := range m.items {
		switch it.Status {
		case models.ItemPending:
			stats.Pending++
		case models.ItemProcessing:
			stats.Processing++
		case models.ItemFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// filter returns matching items in FIFO order (created_at, then id).
func (m *memoryQueueRepository) filter(keep func(models.SyncQueueItem) bool) []models.SyncQueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.SyncQueueItem
	for _, it := range m.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memoryQueueRepository) update(id int64, mutate func(*models.SyncQueueItem)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&item)
	m.items[id] = item
	return nil
}

type memoryMetadataRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryMetadataRepository returns a non-persistent [MetadataRepository].
func NewMemoryMetadataRepository() MetadataRepository {
	return &memoryMetadataRepository{values: make(map[string]string)}
}

func (m *memoryMetadataRepository) GetValue(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *memoryMetadataRepository) SetValue(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
