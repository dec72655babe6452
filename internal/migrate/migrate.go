package migrate

import (
	"github.com/agaaaptr/open-socmed/internal/follow"
	"github.com/agaaaptr/open-socmed/internal/posts"
	"github.com/agaaaptr/open-socmed/internal/profile"
	"github.com/agaaaptr/open-socmed/internal/shared/db"
)

// AutoMigrateAll creates or updates the API's tables. Profiles come first
// because posts reference them.
func AutoMigrateAll(store *db.Store) error {
	return store.Base.AutoMigrate(
		&profile.Profile{},
		&posts.Post{},
		&follow.Follow{},
	)
}
