package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/config"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres when a DSN is configured. Without one the
// gateway runs in no-db mode: profiles and escrow records live in memory and
// verification attempts are not persisted.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Available() bool {
	return s != nil && s.DB != nil
}

// Migrate creates or updates the gateway tables.
func (s *Store) Migrate() error {
	if !s.Available() {
		return errDBUnavailable
	}
	return s.DB.AutoMigrate(
		&ProfileModel{},
		&EscrowRecordModel{},
		&VerificationAttemptModel{},
		&AuditEventModel{},
	)
}
