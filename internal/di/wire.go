//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"coursechat/internal/dbmongo"
	"coursechat/internal/dbmysql"
	"coursechat/internal/media"
	"coursechat/internal/server"
)

// These are just declarations — wire generates the real bodies.

func InitializeApplication() (*Application, error) {
	wire.Build(
		ProvideConfig,
		dbmysql.NewMySQL,
		dbmysql.NewPreferenceRepository,
		dbmysql.NewCourseRepository,
		server.NewHub,
		server.NewRegistry,
		ProvideApp,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}

func InitializeMediaService() (*MediaService, error) {
	wire.Build(
		ProvideConfig,
		dbmongo.NewMongoConnection,
		ProvideAttachmentStorage,
		media.NewHTTPServer,
		wire.Struct(new(MediaService), "*"),
	)
	return &MediaService{}, nil
}
