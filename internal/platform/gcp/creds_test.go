package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientOptionsFromEnv(t *testing.T) {
	for _, name := range credentialEnvs {
		t.Setenv(name, "")
	}
	assert.Nil(t, ClientOptionsFromEnv())

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	assert.Len(t, ClientOptionsFromEnv(), 1)

	t.Setenv("EPR_GCP_CREDENTIALS", `{"type":"service_account"}`)
	assert.Len(t, ClientOptionsFromEnv(), 1)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "Maths 82", collapseWhitespace(" Maths\u00a0\n 82 "))
}
