package services

import (
	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the collaborators shared by the booking services.
type Deps struct {
	DB       *gorm.DB
	Clock    utils.Clock
	Policy   database.TxPolicy
	Settings SettingsProvider
	Events   BookingEvents
	Audit    *AuditService
	Log      logrus.FieldLogger
	Currency string
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	if d.Policy.Attempts == 0 {
		d.Policy = database.DefaultPolicy()
	}
	if d.Settings == nil {
		d.Settings = StaticSettings(models.DefaultAcademySetting())
	}
	if d.Events == nil {
		d.Events = NopEvents{}
	}
	if d.Audit == nil {
		d.Audit = NewAuditService(d.Clock)
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Currency == "" {
		d.Currency = "ZAR"
	}
	return d
}
