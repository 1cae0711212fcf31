package remote

// Backend names a mirror implementation.
type Backend string

const (
	BackendSSM    Backend = "ssm"
	BackendS3     Backend = "s3"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// Config selects and configures the mirror backend.
type Config struct {
	// Backend is ssm, s3, redis or memory.
	Backend Backend `yaml:"backend" json:"backend" validate:"required,oneof=ssm s3 redis memory"`

	// Region overrides the region of the current environment for AWS backends.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// ExpectedAccount, when set, is compared with the caller identity before
	// an AWS backend is used.
	ExpectedAccount string `yaml:"expected_account,omitempty" json:"expected_account,omitempty" validate:"omitempty,len=12,numeric"`

	SSM        SSMConfig        `yaml:"ssm" json:"ssm"`
	S3         S3Config         `yaml:"s3" json:"s3"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`
}

// SSMConfig configures the Parameter Store backend.
type SSMConfig struct {
	// SecureString stores the parameter encrypted with KMS.
	SecureString bool `yaml:"secure_string" json:"secure_string"`

	// KMSKeyID is the key used for SecureString parameters. Empty uses the account default.
	KMSKeyID string `yaml:"kms_key_id,omitempty" json:"kms_key_id,omitempty"`
}

// S3Config configures the object storage backend.
type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"-"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"-"`
	UsePathStyle    bool   `yaml:"use_path_style" json:"use_path_style"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0"`
}

// EncryptionConfig enables age encryption of the remote payload.
type EncryptionConfig struct {
	// Recipients are age X25519 public keys used to seal pushed documents.
	Recipients []string `yaml:"recipients,omitempty" json:"recipients,omitempty"`

	// IdentityFile holds the age identities used to open pulled documents.
	IdentityFile string `yaml:"identity_file,omitempty" json:"identity_file,omitempty"`
}

// Enabled reports whether any encryption setting is present.
func (c EncryptionConfig) Enabled() bool {
	return len(c.Recipients) > 0 || c.IdentityFile != ""
}

// DefaultConfig returns the default remote configuration: Parameter Store
// in the region of the current environment.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSSM,
		Redis:   RedisConfig{Addr: "localhost:6379"},
	}
}
