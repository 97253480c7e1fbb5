package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yungbote/edusight-backend/internal/platform/envutil"
)

const redacted = "[REDACTED]"

// Policy decides how a logged value is masked from its key. Keys match by
// case-insensitive substring. Redacted values are replaced outright; hashed
// values become a short salted digest so one student's entries still
// correlate across lines.
type Policy struct {
	Redact []string
	Hash   []string
	Salt   string
}

// DefaultPolicy masks credentials and the personal fields a student record
// carries.
func DefaultPolicy(salt string) *Policy {
	return &Policy{
		Redact: []string{
			"password", "secret", "token", "authorization", "api_key", "apikey", "credentials",
			"email", "phone", "guardian", "address", "date_of_birth", "dob",
		},
		Hash: []string{"student_id", "student_name", "user_id"},
		Salt: salt,
	}
}

// PolicyFromEnv returns DefaultPolicy salted by LOG_HASH_SALT, or nil when
// LOG_REDACTION_ENABLED is off.
func PolicyFromEnv() *Policy {
	if !envutil.Bool("LOG_REDACTION_ENABLED", true) {
		return nil
	}
	return DefaultPolicy(envutil.String("LOG_HASH_SALT", ""))
}

func (p *Policy) apply(kv []interface{}) []interface{} {
	if p == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, p.value(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func (p *Policy) value(key string, val interface{}) interface{} {
	switch {
	case key != "" && matchesAny(key, p.Redact):
		return redacted
	case key != "" && matchesAny(key, p.Hash):
		return p.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = p.value(strings.ToLower(k), inner)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = p.value(strings.ToLower(k), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = p.value("", inner)
		}
		return out
	default:
		return val
	}
}

func (p *Policy) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.Salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func matchesAny(key string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(key, n) {
			return true
		}
	}
	return false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
