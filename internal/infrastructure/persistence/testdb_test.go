package persistence

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/fxoffice/backend/internal/infrastructure/persistence/models"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory sqlite database with every table migrated.
// A single connection keeps the in-memory database shared across transactions.
// The tenant guard is installed as in production.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.OrganizationModel{},
		&models.UserModel{},
		&models.MembershipModel{},
		&models.RepositoryModel{},
		&models.RepositoryAuthorizedUserModel{},
		&models.CurrencyModel{},
		&models.DenominationModel{},
		&models.CustomerModel{},
		&models.IdentificationModel{},
		&models.CxSessionModel{},
		&models.FloatStackModel{},
		&models.FloatEntryModel{},
		&models.OrderModel{},
		&models.NoteModel{},
	)
	require.NoError(t, err)
	require.NoError(t, tenant.RegisterGuard(db))
	return db
}

// encodingCipher is a reversible stand-in for the secretbox cipher
type encodingCipher struct{}

func (encodingCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (encodingCipher) Decrypt(ciphertext string) (string, error) {
	raw, ok := strings.CutPrefix(ciphertext, "enc:")
	if !ok {
		return "", errors.New("not encrypted")
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	return string(b), err
}
