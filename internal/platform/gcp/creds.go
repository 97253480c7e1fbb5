package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/edusight-backend/internal/platform/envutil"
)

// credentialEnvs are consulted in order; the first non-empty one wins.
var credentialEnvs = []string{
	"EPR_GCP_CREDENTIALS",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON",
	"GOOGLE_APPLICATION_CREDENTIALS",
}

// ClientOptionsFromEnv returns the credential option shared by the Vision,
// Document AI and Storage clients. A value starting with "{" is inline
// service-account JSON; anything else is a key file path. With nothing set
// the SDK falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	for _, name := range credentialEnvs {
		if creds := envutil.String(name, ""); creds != "" {
			return credentialOption(creds)
		}
	}
	return nil
}

func credentialOption(creds string) []option.ClientOption {
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// collapseWhitespace flattens Document AI cell text, which keeps layout
// newlines and non-breaking spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
