package main

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AnalysisRecord represents the schema of the analysis_records table, one
// row per completed analysis cycle
type AnalysisRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"` // Auto-incrementing primary key
	CreatedAt         time.Time `gorm:"not null;index" json:"created_at"`
	ActiveQuestionID  string    `gorm:"size:255;index" json:"active_question_id"`
	DecisionType      string    `gorm:"size:64;not null" json:"decision_type"`
	TargetQuestionID  string    `gorm:"size:255" json:"target_question_id"`
	ProjectionContent string    `gorm:"size:1024" json:"projection_content"`
	PerceptionJSON    string    `gorm:"size:1048576" json:"perception_json"`
	DecisionJSON      string    `gorm:"size:1048576" json:"decision_json"`
}

// InitializeDB initializes the SQLite database and migrates the schema
func InitializeDB() *gorm.DB {
	// Ensure db directory exists
	dbDir := "db"
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create db directory: %v", err)
	}

	dbPath := filepath.Join(dbDir, "analysis_history.db")

	// Connect to SQLite database
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Migrate the schema (create the table if it doesn't exist)
	err = db.AutoMigrate(&AnalysisRecord{})
	if err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	return db
}

// InsertAnalysisRecord inserts a new analysis record into the database
func InsertAnalysisRecord(db *gorm.DB, record AnalysisRecord) error {
	result := db.Create(&record)
	return result.Error
}

// GetRecentAnalysisRecords retrieves the most recent analysis records,
// newest first
func GetRecentAnalysisRecords(db *gorm.DB, limit int) ([]AnalysisRecord, error) {
	var records []AnalysisRecord
	result := db.Order("created_at desc").Limit(limit).Find(&records)
	return records, result.Error
}

// GetAnalysisRecordsByQuestion retrieves all records where the given
// question was either active or targeted, newest first
func GetAnalysisRecordsByQuestion(db *gorm.DB, questionID string) ([]AnalysisRecord, error) {
	var records []AnalysisRecord
	result := db.
		Where("active_question_id = ? OR target_question_id = ?", questionID, questionID).
		Order("created_at desc").
		Find(&records)
	return records, result.Error
}

// PruneAnalysisRecords deletes all but the most recent keep records
func PruneAnalysisRecords(db *gorm.DB, keep int) error {
	var cutoff AnalysisRecord
	result := db.Order("id desc").Offset(keep).Limit(1).Find(&cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}
	return db.Where("id <= ?", cutoff.ID).Delete(&AnalysisRecord{}).Error
}
