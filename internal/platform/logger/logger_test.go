package logger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(p *Policy) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return FromZap(zap.New(core), p), logs
}

func TestPolicyMasksStudentFields(t *testing.T) {
	log, logs := observed(DefaultPolicy("salt"))
	sid := uuid.MustParse("8a1f0c7e-2b7f-4a2e-9f64-5d8e0a6c1b23")

	log.Info("upload completed",
		"student_id", sid,
		"guardian_phone", "+91 98000 00000",
		"Date_Of_Birth", "2011-05-04",
		"rows", 12,
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["guardian_phone"])
	assert.Equal(t, redacted, fields["Date_Of_Birth"])
	assert.EqualValues(t, 12, fields["rows"])

	hashed, ok := fields["student_id"].(string)
	require.True(t, ok)
	assert.Regexp(t, `^hash:[0-9a-f]{12}$`, hashed)
	assert.NotContains(t, hashed, sid.String())
}

func TestPolicyHashIsStableAndSalted(t *testing.T) {
	a := DefaultPolicy("one")
	b := DefaultPolicy("two")
	assert.Equal(t, a.hash("S-1"), a.hash("S-1"))
	assert.NotEqual(t, a.hash("S-1"), b.hash("S-1"))
	assert.Equal(t, "", a.hash(""))
}

func TestPolicyWalksNestedMaps(t *testing.T) {
	p := DefaultPolicy("")
	got := p.value("fields", map[string]string{"email": "a@b.c", "subject": "Math"})
	assert.Equal(t, map[string]interface{}{"email": redacted, "subject": "Math"}, got)
}

func TestWithCarriesPolicy(t *testing.T) {
	log, logs := observed(DefaultPolicy(""))
	child := log.With("component", "Test", "password", "hunter2")
	child.Warn("x", "token", "abc")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "Test", fields["component"])
	assert.Equal(t, redacted, fields["password"])
	assert.Equal(t, redacted, fields["token"])
}

func TestNilPolicyPassesThrough(t *testing.T) {
	log, logs := observed(nil)
	log.Debug("x", "email", "a@b.c")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "a@b.c", fields["email"])
}
