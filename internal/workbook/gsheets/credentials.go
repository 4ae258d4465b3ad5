package gsheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultCredentialsFile is where the service-account key is looked up when
// no path is configured.
const DefaultCredentialsFile = "./config/google-credentials.json"

// Scopes requested for the service account: read/write on spreadsheets
// and Drive for name lookups.
var Scopes = []string{sheets.SpreadsheetsScope, drive.DriveScope}

// Credentials is a loaded service-account key.
type Credentials struct {
	ClientEmail string
	ProjectID   string

	opt option.ClientOption
}

// Option returns the client option that authenticates API calls.
func (c *Credentials) Option() option.ClientOption { return c.opt }

// LoadCredentials reads a service-account JSON key file and prepares a
// token source scoped to Scopes.
func LoadCredentials(ctx context.Context, path string) (*Credentials, error) {
	if path == "" {
		path = DefaultCredentialsFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gsheets: read credentials: %w", err)
	}
	return ParseCredentials(ctx, data)
}

// ParseCredentials is LoadCredentials for an in-memory key.
func ParseCredentials(ctx context.Context, data []byte) (*Credentials, error) {
	var key struct {
		Type      string `json:"type"`
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("gsheets: parse credentials: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("gsheets: credentials type %q is not service_account", key.Type)
	}

	cfg, err := google.JWTConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("gsheets: parse credentials: %w", err)
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("gsheets: credentials missing client_email")
	}

	return &Credentials{
		ClientEmail: cfg.Email,
		ProjectID:   key.ProjectID,
		opt:         option.WithTokenSource(cfg.TokenSource(ctx)),
	}, nil
}
