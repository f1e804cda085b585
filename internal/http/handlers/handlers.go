package handlers

import (
	"github.com/silicity/silicity-server/internal/service"
	"github.com/silicity/silicity-server/pkg/config"
)

type Handlers struct {
	authService  service.AuthService
	groupService service.GroupService
	config       *config.Config
}

func New(
	authService service.AuthService,
	groupService service.GroupService,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:  authService,
		groupService: groupService,
		config:       config,
	}
}
