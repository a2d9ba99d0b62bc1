package postgres

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skyplan/internal/model"
)

// DB holds the global database connection
var DB *gorm.DB

// Init initializes the database connection and sets the global DB variable.
// The plan archive is optional; callers skip Init when no DB is configured.
func Init(url string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Millisecond * 500,
		},
	)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// AutoMigrate models
	if err := db.AutoMigrate(&model.PlanPG{}); err != nil {
		return nil, err
	}

	// Set global DB variable
	DB = db

	return db, nil
}

// GetDB returns the global database connection
func GetDB() *gorm.DB {
	return DB
}

// Close closes the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePlan stores an archived plan record.
func SavePlan(rec *model.PlanPG) error {
	return DB.Save(rec).Error
}

// GetPlan loads one archived plan by id.
func GetPlan(id string) (*model.PlanPG, error) {
	var rec model.PlanPG
	if err := DB.First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListPlans returns archived plans, newest first.
func ListPlans(limit int) ([]*model.PlanPG, error) {
	var recs []*model.PlanPG
	q := DB.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
