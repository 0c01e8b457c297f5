package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/entra-sso/authenticator"
	"github.com/blogem/entra-sso/config"
	"github.com/blogem/entra-sso/controllers"
	"github.com/blogem/entra-sso/database"
	"github.com/blogem/entra-sso/repositories"
	"github.com/blogem/entra-sso/services"
)

// application holds the wired components of a running server
type application struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	repos    *repositories.Repositories
	services *services.Services
	ctrl     *controllers.Controllers
}

// newProvider runs discovery for the configured tenant
func newProvider(ctx context.Context, cfg *config.Config, httpClient *http.Client) (authenticator.Provider, error) {
	return authenticator.NewMicrosoftProvider(ctx, authenticator.MicrosoftConfig{
		IssuerURL:    cfg.OAuth.IssuerURL(),
		TenantID:     cfg.OAuth.TenantID,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURI,
		Scopes:       cfg.OAuth.ScopeList(),
		ResponseMode: cfg.OAuth.ResponseMode,
		HTTPClient:   httpClient,
	})
}

// newApplication opens the database, discovers the provider and wires the
// repositories, services and controllers
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	db, err := database.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos, err := repositories.NewRepositories(db, cfg.Storage.TokenStore)
	if err != nil {
		db.Close()
		return nil, err
	}

	httpClient := authenticator.NewHTTPClient(cfg.HTTP.Timeout)

	provider, err := newProvider(ctx, cfg, httpClient)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize Microsoft OpenID client: %w", err)
	}
	log.Info("discovered Microsoft issuer",
		zap.String("issuer", provider.Metadata().Issuer),
		zap.String("authorization_endpoint", provider.Metadata().AuthorizationEndpoint),
	)

	srvs := services.NewServices(provider, repos, httpClient, cfg.Graph.BaseURL, log)

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		repos:    repos,
		services: srvs,
		ctrl:     controllers.NewControllers(srvs, log.Named("http")),
	}, nil
}

// Close releases the database
func (a *application) Close() error {
	return a.db.Close()
}
