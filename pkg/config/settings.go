package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/remote"
	"github.com/openfroyo/agentcore/pkg/stores"
	"github.com/openfroyo/agentcore/pkg/telemetry"
)

// DefaultFileName is the settings file looked up in the user's home directory.
const DefaultFileName = ".agentcore/settings.yaml"

// Settings configures the agentcore CLI. It is distinct from the document:
// nothing here is mirrored to the remote store.
type Settings struct {
	// DocumentPath is the local document file.
	DocumentPath string `yaml:"document_path" validate:"required"`

	// LockTimeout bounds the wait for the document lock.
	LockTimeout time.Duration `yaml:"lock_timeout" validate:"gte=0"`

	// Remote selects the mirror backend.
	Remote remote.Config `yaml:"remote"`

	// Journal configures the sync run journal and audit log.
	Journal JournalSettings `yaml:"journal"`

	// Policy configures the guardrails evaluated before push.
	Policy PolicySettings `yaml:"policy"`

	// Drift configures drift detection.
	Drift DriftSettings `yaml:"drift"`

	// Watch configures "sync watch".
	Watch WatchSettings `yaml:"watch"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// JournalSettings enables the SQLite journal.
type JournalSettings struct {
	Enabled       bool `yaml:"enabled"`
	stores.Config `yaml:",inline"`
}

// PolicySettings configures the policy engine.
type PolicySettings struct {
	// Enabled turns guardrail evaluation on.
	Enabled bool `yaml:"enabled"`

	// Paths are extra .rego/.json files or directories.
	Paths []string `yaml:"paths,omitempty"`

	// Disabled lists policy names to switch off, built-ins included.
	Disabled []string `yaml:"disabled,omitempty"`
}

// DriftSettings configures the drift detector.
type DriftSettings struct {
	// ExcludePaths are dotted patterns ignored when comparing documents.
	ExcludePaths []string `yaml:"exclude_paths,omitempty"`
}

// WatchSettings configures the document watcher.
type WatchSettings struct {
	// Debounce is the quiet period after a write before auto sync runs.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		DocumentPath: localstore.DefaultPath,
		LockTimeout:  localstore.DefaultLockTimeout,
		Remote:       remote.DefaultConfig(),
		Journal: JournalSettings{
			Enabled: true,
			Config: stores.Config{
				Path:        stores.DefaultPath,
				BusyTimeout: 5 * time.Second,
			},
		},
		Policy: PolicySettings{Enabled: true},
		Watch:  WatchSettings{Debounce: 2 * time.Second},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// DefaultPath returns ~/.agentcore/settings.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads settings from path, applies AGENTCORE_* environment overrides
// and validates the result. An empty path uses DefaultPath and tolerates a
// missing file; an explicit path must exist.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	settings := DefaultSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := settings.decode(data); err != nil {
				return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Parse decodes settings from YAML on top of the defaults and validates them.
func Parse(data []byte) (*Settings, error) {
	settings := DefaultSettings()
	if err := settings.decode(data); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := checkSchema(data); err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (s *Settings) Validate() error {
	if err := structValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid setting %s: failed %q rule", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Remote.Backend == remote.BackendS3 && s.Remote.S3.Bucket == "" {
		return fmt.Errorf("invalid settings: remote.s3.bucket is required for the s3 backend")
	}
	if s.Remote.Backend == remote.BackendRedis && s.Remote.Redis.Addr == "" {
		return fmt.Errorf("invalid settings: remote.redis.addr is required for the redis backend")
	}
	if s.Journal.Enabled && s.Journal.Path == "" {
		return fmt.Errorf("invalid settings: journal.path is required when the journal is enabled")
	}
	if err := s.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry settings: %w", err)
	}
	return nil
}

// Encode renders the settings as YAML.
func (s *Settings) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LocalStoreConfig returns the local store configuration.
func (s *Settings) LocalStoreConfig() localstore.Config {
	cfg := localstore.DefaultConfig()
	cfg.Path = s.DocumentPath
	if s.LockTimeout > 0 {
		cfg.LockTimeout = s.LockTimeout
	}
	return cfg
}
