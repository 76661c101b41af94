// Package gcp holds helpers shared by the Google Cloud and Firebase clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/netaconnect/billing-backend/pkg/config"
)

// ClientOptions returns explicit credentials when configured. With none set
// the SDKs fall back to Application Default Credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.ApplicationCredentials)}
	default:
		return nil
	}
}
