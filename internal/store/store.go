package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrAdminExists = errors.New("admin already exists")
)

type Store struct {
	db *gorm.DB
}

// Open connects to the database and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(sqliteDSN(dsn))
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialector.Name() == DriverSQLite {
		// SQLite allows one writer; a shared connection keeps read-then-write
		// transactions from deadlocking on the lock upgrade.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Admin{}, &User{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func ensureSQLiteDir(dsn string) error {
	path, _, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}
	return nil
}

// sqliteDSN makes concurrent writers wait for the lock instead of failing.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertTelegramUser creates the user keyed by p.TelegramID or refreshes its
// profile. The read and the write share one transaction; if a concurrent
// request inserted the same id first, the row it created is merged instead.
func (s *Store) UpsertTelegramUser(ctx context.Context, p TelegramProfile) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = userByTelegramID(tx, p.TelegramID)
		if errors.Is(err, ErrNotFound) {
			user = newUser(p)
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "telegram_id"}},
				DoNothing: true,
			}).Create(&user)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				return nil
			}
			user, err = userByTelegramID(tx, p.TelegramID)
		}
		if err != nil {
			return err
		}

		user.merge(p)
		return tx.Select("Username", "FirstName", "LastName", "PhotoURL", "UpdatedAt").Save(&user).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("upsert telegram user %d: %w", p.TelegramID, err)
	}
	return user, nil
}

func userByTelegramID(db *gorm.DB, telegramID int64) (User, error) {
	var user User
	err := db.Where("telegram_id = ?", telegramID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) AdminByID(ctx context.Context, id uint) (Admin, error) {
	var admin Admin
	err := s.db.WithContext(ctx).Take(&admin, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Admin{}, ErrNotFound
	}
	return admin, err
}

func (s *Store) AdminByUsername(ctx context.Context, username string) (Admin, error) {
	var admin Admin
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Admin{}, ErrNotFound
	}
	return admin, err
}

func (s *Store) CreateAdmin(ctx context.Context, username, passwordHash string) (Admin, error) {
	admin := Admin{Username: username, Password: passwordHash, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Admin{}, ErrAdminExists
		}
		return Admin{}, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// CreateFirstAdmin inserts the admin only while the admins table is empty.
func (s *Store) CreateFirstAdmin(ctx context.Context, username, passwordHash string) (Admin, error) {
	var admin Admin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Admin{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAdminExists
		}
		admin = Admin{Username: username, Password: passwordHash, IsActive: true}
		return tx.Create(&admin).Error
	})
	switch {
	case err == nil:
		return admin, nil
	case errors.Is(err, ErrAdminExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return Admin{}, ErrAdminExists
	default:
		return Admin{}, fmt.Errorf("create first admin: %w", err)
	}
}

// SetAdminActive enables or disables an admin account.
func (s *Store) SetAdminActive(ctx context.Context, id uint, active bool) error {
	res := s.db.WithContext(ctx).Model(&Admin{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("update admin %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
