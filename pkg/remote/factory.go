package remote

import (
	"context"
	"fmt"

	"filippo.io/age"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// STSAPI is the subset of the STS client used to verify the account.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// New builds the mirror selected by cfg. region is used for AWS backends when
// cfg.Region is empty, normally the region of the current environment.
func New(ctx context.Context, cfg Config, region string, logger zerolog.Logger) (engine.Mirror, error) {
	if cfg.Region != "" {
		region = cfg.Region
	}

	var mirror engine.Mirror
	switch cfg.Backend {
	case BackendMemory:
		mirror = NewMemoryMirror()

	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, wrapError(string(BackendRedis), "ping", cfg.Redis.Addr, err)
		}
		mirror = NewRedisMirror(client, logger)

	case BackendSSM, BackendS3:
		awsCfg, err := LoadAWSConfig(ctx, cfg, region)
		if err != nil {
			return nil, err
		}
		if cfg.ExpectedAccount != "" {
			if err := VerifyAccount(ctx, sts.NewFromConfig(awsCfg), cfg.ExpectedAccount); err != nil {
				return nil, err
			}
		}
		if cfg.Backend == BackendSSM {
			mirror = NewSSMMirror(ssm.NewFromConfig(awsCfg), cfg.SSM, logger)
			break
		}
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires a bucket")
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			}
			o.UsePathStyle = cfg.S3.UsePathStyle
		})
		mirror = NewS3Mirror(client, cfg.S3.Bucket, logger)

	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}

	if !cfg.Encryption.Enabled() {
		return mirror, nil
	}
	recipients, err := ParseRecipients(cfg.Encryption.Recipients)
	if err != nil {
		return nil, err
	}
	var identities []age.Identity
	if cfg.Encryption.IdentityFile != "" {
		if identities, err = LoadIdentities(cfg.Encryption.IdentityFile); err != nil {
			return nil, err
		}
	}
	return NewEncryptedMirror(mirror, recipients, identities), nil
}

// LoadAWSConfig resolves AWS credentials and region for the AWS backends.
func LoadAWSConfig(ctx context.Context, cfg Config, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// VerifyAccount fails when the caller identity belongs to another account.
func VerifyAccount(ctx context.Context, client STSAPI, expected string) error {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return wrapError("sts", "get-caller-identity", expected, err)
	}
	if got := aws.ToString(out.Account); got != expected {
		return engine.NewPreconditionError(engine.ErrCodeAccountMismatch,
			fmt.Sprintf("credentials belong to account %s, expected %s", got, expected))
	}
	return nil
}
