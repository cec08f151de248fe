package database

import (
	"time"

	"github.com/groupe-jds/doku-seal/internal/metrics"

	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

type processor interface {
	Register(name string, fn func(*gorm.DB)) error
}

// RegisterHooks records the duration and outcome of every create, query, update and delete
func RegisterHooks(db *gorm.DB, m *metrics.Metrics) error {
	cb := db.Callback()

	hooks := []struct {
		op     string
		before processor
		after  processor
	}{
		{"insert", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"select", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
	}

	for _, h := range hooks {
		name := "db." + h.op
		if err := h.before.Register("duration:"+h.op, startTimer); err != nil {
			return err
		}
		if err := h.after.Register("metrics:"+h.op, func(tx *gorm.DB) {
			m.RecordDuration(name, elapsed(tx))
			m.RecordResult(name, queryError(tx))
		}); err != nil {
			return err
		}
	}
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func elapsed(db *gorm.DB) time.Duration {
	if start, ok := db.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}

// queryError ignores not-found, which is an expected outcome of lookups
func queryError(db *gorm.DB) error {
	if db.Error == gorm.ErrRecordNotFound {
		return nil
	}
	return db.Error
}
