package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

const (
	standardTierLimit = 4 * 1024
	advancedTierLimit = 8 * 1024

	// gzipMarker prefixes parameter values holding base64 gzip data. A JSON
	// document never starts with it.
	gzipMarker = "agentcore+gzip:"
)

// SSMAPI is the subset of the SSM client used by SSMMirror.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMMirror stores the document as a Parameter Store parameter.
type SSMMirror struct {
	client SSMAPI
	cfg    SSMConfig
	logger zerolog.Logger
}

// NewSSMMirror creates a Parameter Store mirror.
func NewSSMMirror(client SSMAPI, cfg SSMConfig, logger zerolog.Logger) *SSMMirror {
	return &SSMMirror{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("backend", string(BackendSSM)).Logger(),
	}
}

// Name returns "ssm".
func (m *SSMMirror) Name() string { return string(BackendSSM) }

// Get reads the parameter, decrypting SecureString values.
func (m *SSMMirror) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := m.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return nil, notFound(m.Name(), key)
		}
		return nil, wrapError(m.Name(), "get", key, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, notFound(m.Name(), key)
	}
	m.logger.Debug().Str("key", key).Int64("version", out.Parameter.Version).Msg("Fetched remote document")

	data, err := unpackValue(aws.ToString(out.Parameter.Value))
	if err != nil {
		return nil, engine.NewAdapterError("failed to decompress parameter value", err).
			WithResource(key).
			WithOperation(m.Name() + ".get")
	}
	return data, nil
}

// Put overwrites the parameter. JSON is stored compact; values that still
// exceed the standard tier are gzipped. Values above the standard tier limit
// after that are written to the advanced tier.
func (m *SSMMirror) Put(ctx context.Context, key string, data []byte) error {
	value, err := packValue(data)
	if err != nil {
		return engine.NewAdapterError("failed to compress document", err).
			WithResource(key).
			WithOperation(m.Name() + ".put")
	}
	if len(value) > advancedTierLimit {
		return engine.NewAdapterError(
			fmt.Sprintf("document is %d bytes after compression, parameter store allows %d", len(value), advancedTierLimit), nil).
			WithResource(key).
			WithOperation(m.Name() + ".put")
	}

	in := &ssm.PutParameterInput{
		Name:      aws.String(key),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
		Tier:      types.ParameterTierStandard,
	}
	if len(value) > standardTierLimit {
		in.Tier = types.ParameterTierAdvanced
	}
	if m.cfg.SecureString {
		in.Type = types.ParameterTypeSecureString
		if m.cfg.KMSKeyID != "" {
			in.KeyId = aws.String(m.cfg.KMSKeyID)
		}
	}

	out, err := m.client.PutParameter(ctx, in)
	if err != nil {
		return wrapError(m.Name(), "put", key, err)
	}
	m.logger.Debug().
		Str("key", key).
		Str("tier", string(in.Tier)).
		Int64("version", out.Version).
		Int("bytes", len(data)).
		Int("stored_bytes", len(value)).
		Msg("Stored remote document")
	return nil
}

// packValue returns the parameter value for data.
func packValue(data []byte) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err == nil {
		data = compact.Bytes()
	}
	if len(data) <= standardTierLimit {
		return string(data), nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(data); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return gzipMarker + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// unpackValue reverses packValue. Values without the marker are returned as is.
func unpackValue(value string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(value, gzipMarker)
	if !ok {
		return []byte(value), nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

var _ engine.Mirror = (*SSMMirror)(nil)
