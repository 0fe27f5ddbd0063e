package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/alexkrista/whatsapp-webhook/internal/store"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_sender_states",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&store.SenderStateModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sender_states_last_code_set_at ON sender_states (last_code_set_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&store.SenderStateModel{})
			},
		},
		{
			ID: "000002_create_seen_messages",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&store.SeenMessageModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_seen_messages_first_seen_at ON seen_messages (first_seen_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&store.SeenMessageModel{})
			},
		},
	})

	return m.Migrate()
}
