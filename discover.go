package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/blogem/entra-sso/authenticator"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run OpenID discovery for the configured tenant",
	Long: `Fetch the OpenID configuration of the configured tenant and print the
endpoints the login flow would use.`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, err := newProvider(cmd.Context(), cfg, authenticator.NewHTTPClient(cfg.HTTP.Timeout))
	if err != nil {
		return err
	}
	md := provider.Metadata()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Discovered " + cfg.OAuth.IssuerURL())
	t.AppendHeader(table.Row{"Endpoint", "URL"})
	t.AppendRows([]table.Row{
		{"issuer", md.Issuer},
		{"authorization_endpoint", md.AuthorizationEndpoint},
		{"token_endpoint", md.TokenEndpoint},
		{"userinfo_endpoint", md.UserInfoEndpoint},
	})
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "scopes: %s\n", strings.Join(cfg.OAuth.ScopeList(), " "))
	return nil
}
