package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vsla-ledger/internal/domain/approval"
	"vsla-ledger/internal/domain/ledger"
	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/domain/rules"
	"vsla-ledger/internal/domain/sysconfig"
	"vsla-ledger/internal/domain/vote"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// OpenGorm connects with the configured driver; dsn is a MySQL DSN or a sqlite file path.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverMySQL:
		return OpenGormWithDialector(mysql.Open(dsn))
	case DriverSQLite:
		return OpenGormWithDialector(sqlite.Open(dsn))
	}
	return nil, fmt.Errorf("unsupported DB driver %q", driver)
}

// OpenGormWithDialector opens gorm on any dialector and verifies the pool with one ping.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every persisted entity in dependency-free order.
func Models() []any {
	return []any{
		&ledger.Entry{},
		&ledger.Head{},
		&member.Member{},
		&member.Attendance{},
		&member.Fine{},
		&loan.Assessment{},
		&loan.Application{},
		&loan.GroupLoan{},
		&loan.Installment{},
		&approval.OfficerApproval{},
		&vote.Vote{},
		&vote.Ballot{},
		&rules.GroupBusinessRules{},
		&sysconfig.Setting{},
	}
}

// Migrate creates or updates the schema of every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
