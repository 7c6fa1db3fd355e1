package archive

import (
	"time"

	"gorm.io/gorm"
)

// CaptureRepository handles capture database operations
type CaptureRepository struct {
	db *gorm.DB
}

// NewCaptureRepository creates a new capture repository
func NewCaptureRepository(db *gorm.DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Create adds a new capture record
func (r *CaptureRepository) Create(c *Capture) error {
	return r.db.Create(c).Error
}

// GetRecent retrieves the most recent N captures
func (r *CaptureRepository) GetRecent(limit int) ([]Capture, error) {
	var captures []Capture
	err := r.db.Order("received_at DESC").Limit(limit).Find(&captures).Error
	return captures, err
}

// GetRecentPaginated retrieves captures with pagination
func (r *CaptureRepository) GetRecentPaginated(page, perPage int) ([]Capture, int64, error) {
	var captures []Capture
	var total int64

	// Count total records
	if err := r.db.Model(&Capture{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get paginated results
	offset := (page - 1) * perPage
	err := r.db.Order("received_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&captures).Error

	return captures, total, err
}

// GetByProtocol retrieves captures for a specific protocol
func (r *CaptureRepository) GetByProtocol(protocol string, limit int) ([]Capture, error) {
	var captures []Capture
	err := r.db.Where("protocol = ?", protocol).
		Order("received_at DESC").
		Limit(limit).
		Find(&captures).Error
	return captures, err
}

// GetByValue retrieves captures matching a raw frame value
func (r *CaptureRepository) GetByValue(value uint64, limit int) ([]Capture, error) {
	var captures []Capture
	err := r.db.Where("value = ?", value).
		Order("received_at DESC").
		Limit(limit).
		Find(&captures).Error
	return captures, err
}

// CountByProtocol returns the number of archived captures per protocol
func (r *CaptureRepository) CountByProtocol() (map[string]int64, error) {
	type row struct {
		Protocol string
		N        int64
	}
	var rows []row
	err := r.db.Model(&Capture{}).
		Select("protocol, COUNT(*) AS n").
		Group("protocol").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Protocol] = rw.N
	}
	return counts, nil
}

// DeleteOlderThan deletes captures received before the specified time
func (r *CaptureRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("received_at < ?", before).Delete(&Capture{})
	return result.RowsAffected, result.Error
}
