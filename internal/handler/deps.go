package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/app/user"
	"relaychat/internal/configs"
)

// AppDeps bundles the collaborators the HTTP handlers need.
type AppDeps struct {
	Hub      *chat.Hub
	Config   *configs.AppConfig
	Users    user.Store
	Messages chat.MessageStore
}
