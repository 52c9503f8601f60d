package database

import (
	"time"

	"example.com/backstage/services/tenders/internal/metrics"

	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

// RegisterMetricsHooks records every create, query, update and delete
func RegisterMetricsHooks(db *gorm.DB) {
	record := func(queryType string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			metrics.GetMetricsCollector().RecordDatabaseQuery(queryType, tx.Error == nil || tx.Error == gorm.ErrRecordNotFound, getDuration(tx))
		}
	}
	_ = db.Callback().Create().After("gorm:create").Register("metrics:create", record(metrics.DBQueryTypeInsert))
	_ = db.Callback().Query().After("gorm:query").Register("metrics:query", record(metrics.DBQueryTypeSelect))
	_ = db.Callback().Update().After("gorm:update").Register("metrics:update", record(metrics.DBQueryTypeUpdate))
	_ = db.Callback().Delete().After("gorm:delete").Register("metrics:delete", record(metrics.DBQueryTypeDelete))
}

// RegisterDurationHooks stamps the start time of each operation
func RegisterDurationHooks(db *gorm.DB) {
	_ = db.Callback().Create().Before("gorm:create").Register("duration:create", markStart)
	_ = db.Callback().Query().Before("gorm:query").Register("duration:query", markStart)
	_ = db.Callback().Update().Before("gorm:update").Register("duration:update", markStart)
	_ = db.Callback().Delete().Before("gorm:delete").Register("duration:delete", markStart)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func getDuration(db *gorm.DB) time.Duration {
	if start, ok := db.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
