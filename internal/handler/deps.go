package handler

import (
	"messenger/internal/app/chat"
	"messenger/internal/configs"
)

type AppDeps struct {
	Config *configs.AppConfig

	// Chat bundles the collaborators handed to every new session.
	Chat chat.Deps
}
