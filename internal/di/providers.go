package di

import (
	"gorm.io/gorm"

	"coursechat/internal/config"
	"coursechat/internal/dbmongo"
	"coursechat/internal/dbmysql"
	"coursechat/internal/media"
	"coursechat/internal/server"
)

// Application bundles everything the chat server process needs.
type Application struct {
	Config *config.Config
	DB     *gorm.DB
	Hub    *server.Hub
	App    *server.App
}

// MediaService bundles the attachment facade process.
type MediaService struct {
	Config *config.Config
	Mongo  *dbmongo.MongoClient
	Server *media.HTTPServer
}

func ProvideConfig() *config.Config {
	return config.Load()
}

func ProvideAttachmentStorage(mongoClient *dbmongo.MongoClient, cfg *config.Config) *dbmongo.AttachmentStorage {
	return dbmongo.NewAttachmentStorage(mongoClient, cfg.Media.BaseURL)
}

// ProvideApp narrows the concrete repositories to the interfaces the
// app consumes.
func ProvideApp(hub *server.Hub, registry *server.Registry, courses dbmysql.CourseRepository, prefs dbmysql.PreferenceRepository) *server.App {
	return server.NewApp(hub, registry, courses, courses, prefs, prefs)
}
