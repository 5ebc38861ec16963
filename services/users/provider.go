package users

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRepository(db *gorm.DB) *Repository {
	return NewRepository(db)
}

var Module = fx.Options(
	fx.Provide(ProvideRepository),
)
