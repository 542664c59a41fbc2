package graph

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

type Entity struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (Entity) TableName() string { return "kg_entity" }

type Relation struct {
	ID      uint   `gorm:"primaryKey"`
	Subject string `gorm:"not null;uniqueIndex:idx_kg_relation_spo,priority:1"`
	Name    string `gorm:"not null;uniqueIndex:idx_kg_relation_spo,priority:2"`
	Object  string `gorm:"not null;uniqueIndex:idx_kg_relation_spo,priority:3;index"`
}

func (Relation) TableName() string { return "kg_relation" }

// SQLWriter mirrors the graph into two relational tables through gorm.
type SQLWriter struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenSQL opens a sqlite or postgres database and migrates the graph tables.
func OpenSQL(backend, dsn string, log *logger.Logger) (*SQLWriter, error) {
	var dialector gorm.Dialector
	switch backend {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("graph: unsupported sql backend %q", backend)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", backend, err)
	}
	if backend == "sqlite" {
		// An in-memory sqlite database exists per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("graph: sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLWriter(db, log)
}

func NewSQLWriter(db *gorm.DB, log *logger.Logger) (*SQLWriter, error) {
	if db == nil {
		return nil, errors.New("graph: gorm db required")
	}
	if log == nil {
		return nil, errors.New("graph: logger required")
	}
	if err := db.AutoMigrate(&Entity{}, &Relation{}); err != nil {
		return nil, fmt.Errorf("graph: migrate: %w", err)
	}
	return &SQLWriter{db: db, log: log.With("writer", "sql", "dialect", db.Dialector.Name())}, nil
}

func (w *SQLWriter) WriteTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, sqlTx{db: tx})
	})
}

// Counts reports the number of stored entities and relation edges.
func (w *SQLWriter) Counts(ctx context.Context) (entities, relations int64, err error) {
	db := w.db.WithContext(ctx)
	if err = db.Model(&Entity{}).Count(&entities).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&Relation{}).Count(&relations).Error; err != nil {
		return 0, 0, err
	}
	return entities, relations, nil
}

func (w *SQLWriter) Close(ctx context.Context) error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlTx struct {
	db *gorm.DB
}

func (s sqlTx) MergeTriple(ctx context.Context, t Triple) error {
	ignoreEntity := clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}
	for _, name := range []string{t.Subject, t.Object} {
		if err := s.db.Clauses(ignoreEntity).Create(&Entity{Name: name}).Error; err != nil {
			return err
		}
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}, {Name: "name"}, {Name: "object"}},
		DoNothing: true,
	}).Create(&Relation{Subject: t.Subject, Name: t.Relation, Object: t.Object}).Error
}
