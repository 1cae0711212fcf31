package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// EncryptedMirror seals documents with age before handing them to the
// wrapped mirror. Payloads are ASCII armored so text-only backends such as
// Parameter Store can hold them.
type EncryptedMirror struct {
	inner      engine.Mirror
	recipients []age.Recipient
	identities []age.Identity
}

// NewEncryptedMirror wraps inner. Recipients are required to push and
// identities to pull; either list may be empty on hosts that only do one.
func NewEncryptedMirror(inner engine.Mirror, recipients []age.Recipient, identities []age.Identity) *EncryptedMirror {
	return &EncryptedMirror{inner: inner, recipients: recipients, identities: identities}
}

// Name returns the wrapped backend name with an "+age" suffix.
func (m *EncryptedMirror) Name() string { return m.inner.Name() + "+age" }

// Get fetches and decrypts the document.
func (m *EncryptedMirror) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := m.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(m.identities) == 0 {
		return nil, engine.NewAdapterError("no age identities configured for decryption", nil).
			WithResource(key).WithOperation(m.Name() + ".get")
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header)) {
		return nil, engine.NewAdapterError("remote payload is not age encrypted", nil).
			WithResource(key).WithOperation(m.Name() + ".get")
	}

	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(data)), m.identities...)
	if err != nil {
		return nil, engine.NewAdapterError("failed to decrypt remote document", err).
			WithResource(key).WithOperation(m.Name() + ".get")
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, engine.NewAdapterError("failed to read decrypted document", err).
			WithResource(key).WithOperation(m.Name() + ".get")
	}
	return plaintext, nil
}

// Put encrypts the document to every recipient and stores the armored result.
func (m *EncryptedMirror) Put(ctx context.Context, key string, data []byte) error {
	if len(m.recipients) == 0 {
		return engine.NewAdapterError("no age recipients configured for encryption", nil).
			WithResource(key).WithOperation(m.Name() + ".put")
	}

	var buf bytes.Buffer
	armored := armor.NewWriter(&buf)
	w, err := age.Encrypt(armored, m.recipients...)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return fmt.Errorf("failed to finalize armor: %w", err)
	}
	return m.inner.Put(ctx, key, buf.Bytes())
}

// ParseRecipients parses age X25519 public keys.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	out := make([]age.Recipient, 0, len(keys))
	for _, k := range keys {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("failed to parse recipient %q: %w", k, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// LoadIdentities reads an age identity file. Comment and blank lines are skipped.
func LoadIdentities(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file: %w", err)
	}
	return ids, nil
}

var _ engine.Mirror = (*EncryptedMirror)(nil)
