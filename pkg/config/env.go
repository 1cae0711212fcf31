package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openfroyo/agentcore/pkg/remote"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTCORE_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envBinding struct {
	name  string
	apply func(s *Settings, value string) error
}

var envBindings = []envBinding{
	{"DOCUMENT", func(s *Settings, v string) error { s.DocumentPath = v; return nil }},
	{"LOCK_TIMEOUT", func(s *Settings, v string) error { return setDuration(&s.LockTimeout, v) }},
	{"REMOTE_BACKEND", func(s *Settings, v string) error { s.Remote.Backend = remote.Backend(strings.ToLower(v)); return nil }},
	{"REMOTE_REGION", func(s *Settings, v string) error { s.Remote.Region = v; return nil }},
	{"EXPECTED_ACCOUNT", func(s *Settings, v string) error { s.Remote.ExpectedAccount = v; return nil }},
	{"S3_BUCKET", func(s *Settings, v string) error { s.Remote.S3.Bucket = v; return nil }},
	{"S3_ENDPOINT", func(s *Settings, v string) error { s.Remote.S3.Endpoint = v; return nil }},
	{"REDIS_ADDR", func(s *Settings, v string) error { s.Remote.Redis.Addr = v; return nil }},
	{"REDIS_PASSWORD", func(s *Settings, v string) error { s.Remote.Redis.Password = v; return nil }},
	{"AGE_RECIPIENTS", func(s *Settings, v string) error { s.Remote.Encryption.Recipients = splitList(v); return nil }},
	{"AGE_IDENTITY_FILE", func(s *Settings, v string) error { s.Remote.Encryption.IdentityFile = v; return nil }},
	{"JOURNAL", func(s *Settings, v string) error { return setBool(&s.Journal.Enabled, v) }},
	{"JOURNAL_PATH", func(s *Settings, v string) error { s.Journal.Path = v; return nil }},
	{"POLICY_PATHS", func(s *Settings, v string) error { s.Policy.Paths = splitList(v); return nil }},
	{"LOG_LEVEL", func(s *Settings, v string) error { s.Telemetry.Logging.Level = strings.ToLower(v); return nil }},
	{"LOG_FORMAT", func(s *Settings, v string) error { s.Telemetry.Logging.Format = strings.ToLower(v); return nil }},
	{"OTLP_ENDPOINT", func(s *Settings, v string) error {
		s.Telemetry.Tracing.Enabled = true
		s.Telemetry.Tracing.Exporter = "otlp"
		s.Telemetry.Tracing.Endpoint = v
		return nil
	}},
}

// EnvNames lists the supported environment variables.
func EnvNames() []string {
	names := make([]string, 0, len(envBindings))
	for _, b := range envBindings {
		names = append(names, EnvPrefix+b.name)
	}
	return names
}

// ApplyEnv overrides settings from AGENTCORE_* variables. Empty values are ignored.
func (s *Settings) ApplyEnv(lookup LookupFunc) error {
	for _, b := range envBindings {
		value, ok := lookup(EnvPrefix + b.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := b.apply(s, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
