package utils

import (
	"time"

	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/models"
)

// CleanStaleImages removes image rows whose upload descriptor expired
// without ever being consumed. Unused descriptors carry no server state
// beyond the row, so dropping the row is the whole cleanup. At most 100
// rows per sweep; stragglers wait for the next tick.
func CleanStaleImages(db *gorm.DB, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	var ids []uint
	err := db.Model(&models.PostImage{}).
		Where("uploaded_at IS NULL AND created_at <= ?", cutoff).
		Limit(100).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	res := db.Delete(&models.PostImage{}, ids)
	return res.RowsAffected, res.Error
}

// StartImageCleaner launches a background goroutine sweeping stale image
// rows every interval. Best-effort; failures are logged and retried on the
// next tick.
func StartImageCleaner(db *gorm.DB, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			removed, err := CleanStaleImages(db, ttl)
			if err != nil {
				if Sugar != nil {
					Sugar.Warnf("image cleaner delete failed: %v", err)
				}
				continue
			}
			if removed > 0 && Sugar != nil {
				Sugar.Infof("image cleaner removed %d stale image rows", removed)
			}
		}
	}()
}
