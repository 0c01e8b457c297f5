package services

import (
	"net/http"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/repositories"
	"go.uber.org/zap"
)

// Services holds all service instances
type Services struct {
	Auth  AuthService
	Graph GraphService
}

// NewServices creates and initializes all service instances
func NewServices(provider authenticator.Provider, repos *repositories.Repositories, httpClient *http.Client, graphBaseURL string, log *zap.Logger) *Services {
	return &Services{
		Auth:  NewAuthService(provider, repos.Tokens, repos.Audit, log.Named("auth")),
		Graph: NewGraphService(graphBaseURL, repos.Tokens, httpClient, log.Named("graph")),
	}
}
