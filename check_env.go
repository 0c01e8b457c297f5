package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/blogem/entra-sso/config"
)

var guidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const notSet = "(not set)"

var checkEnvCmd = &cobra.Command{
	Use:   "check-env",
	Short: "Print the OAuth environment and check the client ID",
	Long: `Print the OAuth related environment, with the client secret hidden, and
check that CLIENT_ID looks like an application ID.

Exits non-zero when required settings are missing or malformed.`,
	RunE: runCheckEnv,
}

func runCheckEnv(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	_, statErr := os.Stat(envFile)
	fmt.Fprintf(out, "%s file exists: %t\n", envFile, statErr == nil)

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	renderEnvTable(out, cfg)
	if cfg.OAuth.ClientID != "" {
		renderClientIDTable(out, cfg.OAuth.ClientID)
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if !guidPattern.MatchString(cfg.OAuth.ClientID) {
		return fmt.Errorf("CLIENT_ID %q is not a valid application ID", cfg.OAuth.ClientID)
	}
	return nil
}

func valueOrNotSet(v string) string {
	if v == "" {
		return notSet
	}
	return v
}

func renderEnvTable(out io.Writer, cfg *config.Config) {
	secret := notSet
	if cfg.OAuth.ClientSecret != "" {
		secret = "(is set, value hidden)"
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Environment Variables")
	t.AppendHeader(table.Row{"Variable", "Value"})
	t.AppendRows([]table.Row{
		{"CLIENT_ID", valueOrNotSet(cfg.OAuth.ClientID)},
		{"CLIENT_SECRET", secret},
		{"REDIRECT_URI", valueOrNotSet(cfg.OAuth.RedirectURI)},
		{"TENANT_ID", valueOrNotSet(cfg.OAuth.TenantID)},
		{"AUTHORITY_HOST", cfg.OAuth.AuthorityHost},
		{"SCOPES", cfg.OAuth.Scopes},
		{"RESPONSE_MODE", cfg.OAuth.ResponseMode},
		{"TOKEN_STORE", cfg.Storage.TokenStore},
	})
	t.Render()
}

func renderClientIDTable(out io.Writer, clientID string) {
	first, last := clientID, clientID
	if len(clientID) > 5 {
		first = clientID[:5]
		last = clientID[len(clientID)-5:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("CLIENT_ID details")
	t.AppendHeader(table.Row{"Check", "Result"})
	t.AppendRows([]table.Row{
		{"Length", strconv.Itoa(len(clientID))},
		{"Format valid", strconv.FormatBool(guidPattern.MatchString(clientID))},
		{"Has whitespace", strconv.FormatBool(strings.ContainsAny(clientID, " \t\r\n"))},
		{"First few chars", first + "..."},
		{"Last few chars", "..." + last},
	})
	t.Render()
}
