package migration

import (
	"github.com/PayRam/go-affiliate/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var Initialise = &gormigrate.Migration{
	ID: "202608251420-ga-507316",
	Migrate: func(db *gorm.DB) error {
		return db.AutoMigrate(
			&models.Affiliate{},
			&models.Offer{},
			&models.ReferralCode{},
			&models.Click{},
			&models.Conversion{},
			&models.ValidationRule{},
			&models.SmartLink{},
			&models.Webhook{},
			&models.WebhookDelivery{},
			&models.WebhookDeliveryLog{},
			&models.ProjectSettings{},
		)
	},
	Rollback: func(db *gorm.DB) error {
		return db.Migrator().DropTable(
			&models.ProjectSettings{},
			&models.WebhookDeliveryLog{},
			&models.WebhookDelivery{},
			&models.Webhook{},
			&models.SmartLink{},
			&models.ValidationRule{},
			&models.Conversion{},
			&models.Click{},
			&models.ReferralCode{},
			&models.Offer{},
			&models.Affiliate{},
		)
	},
}
