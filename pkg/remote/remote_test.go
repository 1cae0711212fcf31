package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

var testLogger = zerolog.New(nil).Level(zerolog.Disabled)

type fakeSSM struct {
	mu     sync.Mutex
	params map[string]string
	puts   []*ssm.PutParameterInput
	err    error
}

func newFakeSSM() *fakeSSM { return &fakeSSM{params: map[string]string{}} }

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("not found")}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(v), Version: 1}}, nil
}

func (f *fakeSSM) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.params[aws.ToString(in.Name)] = aws.ToString(in.Value)
	return &ssm.PutParameterOutput{Version: int64(len(f.puts))}, nil
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

type fakeSTS struct {
	account string
}

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

// exerciseMirror checks the contract every backend shares.
func exerciseMirror(t *testing.T, m engine.Mirror) {
	t.Helper()
	ctx := context.Background()
	key := Key("/agentcore")

	if _, err := m.Get(ctx, key); !errors.Is(err, engine.ErrRemoteNotFound) {
		t.Fatalf("%s Get(missing) error = %v, want ErrRemoteNotFound", m.Name(), err)
	}
	if !engine.IsNotFound(func() error { _, err := m.Get(ctx, key); return err }()) {
		t.Errorf("%s IsNotFound() = false", m.Name())
	}

	payload := []byte(`{"current_environment":"dev"}`)
	if err := m.Put(ctx, key, payload); err != nil {
		t.Fatalf("%s Put() error = %v", m.Name(), err)
	}
	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("%s Get() error = %v", m.Name(), err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("%s Get() = %s, want %s", m.Name(), got, payload)
	}

	next := []byte(`{"current_environment":"prod"}`)
	if err := m.Put(ctx, key, next); err != nil {
		t.Fatalf("%s Put(overwrite) error = %v", m.Name(), err)
	}
	if got, _ := m.Get(ctx, key); !bytes.Equal(got, next) {
		t.Errorf("%s Get() after overwrite = %s", m.Name(), got)
	}
}

func TestMirrors(t *testing.T) {
	tests := []struct {
		name   string
		mirror engine.Mirror
	}{
		{"memory", NewMemoryMirror()},
		{"ssm", NewSSMMirror(newFakeSSM(), SSMConfig{}, testLogger)},
		{"s3", NewS3Mirror(&fakeS3{objects: map[string][]byte{}}, "bucket", testLogger)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exerciseMirror(t, tt.mirror)
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"/agentcore", "/agentcore/config"},
		{"/agentcore/", "/agentcore/config"},
		{"/teams/bots", "/teams/bots/config"},
		{"", "/agentcore/config"},
	}
	for _, tt := range tests {
		if got := Key(tt.prefix); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestS3ObjectKeyDropsLeadingSlash(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	m := NewS3Mirror(fake, "bucket", testLogger)
	if err := m.Put(context.Background(), "/agentcore/config", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["bucket/agentcore/config"]; !ok {
		t.Errorf("objects = %v, want bucket/agentcore/config", fake.objects)
	}
}

func TestSSMPutParameters(t *testing.T) {
	fake := newFakeSSM()
	ctx := context.Background()

	m := NewSSMMirror(fake, SSMConfig{SecureString: true, KMSKeyID: "alias/agentcore"}, testLogger)
	if err := m.Put(ctx, "/agentcore/config", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	in := fake.puts[0]
	if in.Type != ssmtypes.ParameterTypeSecureString || aws.ToString(in.KeyId) != "alias/agentcore" {
		t.Errorf("Put() type = %s key = %s", in.Type, aws.ToString(in.KeyId))
	}
	if !aws.ToBool(in.Overwrite) || in.Tier != ssmtypes.ParameterTierStandard {
		t.Errorf("Put() overwrite = %v tier = %s", aws.ToBool(in.Overwrite), in.Tier)
	}

	// Random bytes do not compress, so the stored size tracks the input size.
	rng := rand.New(rand.NewSource(1))
	large := make([]byte, 4500)
	rng.Read(large)
	if err := m.Put(ctx, "/agentcore/config", large); err != nil {
		t.Fatal(err)
	}
	if fake.puts[1].Tier != ssmtypes.ParameterTierAdvanced {
		t.Errorf("Put(large) tier = %s, want Advanced", fake.puts[1].Tier)
	}
	if got, err := m.Get(ctx, "/agentcore/config"); err != nil || !bytes.Equal(got, large) {
		t.Errorf("Get(large) = %d bytes, %v", len(got), err)
	}

	tooLarge := make([]byte, 7000)
	rng.Read(tooLarge)
	if err := m.Put(ctx, "/agentcore/config", tooLarge); !engine.IsAdapter(err) {
		t.Errorf("Put(too large) error = %v, want adapter error", err)
	}
	if len(fake.puts) != 2 {
		t.Errorf("oversized document reached the API")
	}
}

func TestSSMStoresLargeDocuments(t *testing.T) {
	doc := model.NewDocument()
	doc.CurrentEnvironment = "prod"
	env := &model.Environment{Name: "prod", Region: "us-east-1", AgentRuntimes: map[string]*model.AgentRuntime{}}
	doc.Environments["prod"] = env
	for r := 0; r < 4; r++ {
		name := fmt.Sprintf("bot-%d", r)
		rt := &model.AgentRuntime{
			Name:                 name,
			Region:               "us-east-1",
			PrimaryECRRepository: name + "-repo",
			Versions:             map[string]model.AgentRuntimeVersion{},
			Endpoints:            map[string]string{},
		}
		for v := 1; v <= 25; v++ {
			id := model.FormatVersionID(v)
			rt.Versions[id] = model.AgentRuntimeVersion{
				VersionID:         id,
				ECRRepositoryName: name + "-repo",
				ImageTag:          fmt.Sprintf("v%d", v),
				Status:            model.VersionReady,
				ExecutionRoleARN:  "arn:aws:iam::123456789012:role/agentcore-runtime",
				Description:       "release " + id,
			}
		}
		rt.Endpoints[model.DefaultEndpoint] = model.FormatVersionID(25)
		rt.LatestVersion = model.FormatVersionID(25)
		rt.VersionSequence = 25
		env.AgentRuntimes[name] = rt
	}

	data, err := model.Encode(doc, model.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) <= advancedTierLimit {
		t.Fatalf("document is only %d bytes, want more than %d", len(data), advancedTierLimit)
	}

	fake := newFakeSSM()
	m := NewSSMMirror(fake, SSMConfig{}, testLogger)
	ctx := context.Background()
	if err := m.Put(ctx, "/agentcore/config", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	stored := fake.params["/agentcore/config"]
	if !strings.HasPrefix(stored, gzipMarker) || len(stored) > advancedTierLimit {
		t.Errorf("stored value is %d bytes, prefix %q", len(stored), stored[:min(len(stored), len(gzipMarker))])
	}

	got, err := m.Get(ctx, "/agentcore/config")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var want bytes.Buffer
	if err := json.Compact(&want, data); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want.Bytes()) {
		t.Error("Get() did not return the stored document")
	}
	back, err := model.Decode(got, model.FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(back.Environments["prod"].AgentRuntimes["bot-3"].Versions) != 25 {
		t.Error("decoded document lost versions")
	}
}

func TestSSMReadsUncompressedValues(t *testing.T) {
	fake := newFakeSSM()
	fake.params["/agentcore/config"] = `{"current_environment": "dev"}`
	got, err := NewSSMMirror(fake, SSMConfig{}, testLogger).Get(context.Background(), "/agentcore/config")
	if err != nil || string(got) != `{"current_environment": "dev"}` {
		t.Errorf("Get() = %s, %v", got, err)
	}

	fake.params["/agentcore/config"] = gzipMarker + "not base64!"
	if _, err := NewSSMMirror(fake, SSMConfig{}, testLogger).Get(context.Background(), "/agentcore/config"); !engine.IsAdapter(err) {
		t.Errorf("Get(corrupt) error = %v, want adapter error", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}, engine.ErrCodePermissionDenied},
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException"}, engine.ErrCodeThrottled},
		{"too many updates", &smithy.GenericAPIError{Code: "TooManyUpdates"}, engine.ErrCodeThrottled},
		{"deadline", context.DeadlineExceeded, engine.ErrCodeNetwork},
		{"dial", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), engine.ErrCodeNetwork},
		{"unknown", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeSSM()
			fake.err = tt.err
			_, err := NewSSMMirror(fake, SSMConfig{}, testLogger).Get(context.Background(), "/agentcore/config")
			if !engine.IsAdapter(err) {
				t.Fatalf("Get() error = %v, want adapter error", err)
			}
			var e *engine.EngineError
			errors.As(err, &e)
			if e.Code != tt.want {
				t.Errorf("code = %q, want %q", e.Code, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("adapter error does not wrap the cause")
			}
		})
	}
}

func TestEncryptedMirror(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	inner := NewMemoryMirror()
	m := NewEncryptedMirror(inner, []age.Recipient{identity.Recipient()}, []age.Identity{identity})
	if m.Name() != "memory+age" {
		t.Errorf("Name() = %q", m.Name())
	}
	exerciseMirror(t, m)

	raw, err := inner.Get(context.Background(), Key(""))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), armor.Header) {
		t.Errorf("stored payload is not armored: %q", raw[:32])
	}
	if bytes.Contains(raw, []byte("current_environment")) {
		t.Error("stored payload contains plaintext")
	}

	other, _ := age.GenerateX25519Identity()
	wrong := NewEncryptedMirror(inner, nil, []age.Identity{other})
	if _, err := wrong.Get(context.Background(), Key("")); !engine.IsAdapter(err) {
		t.Errorf("Get(wrong identity) error = %v, want adapter error", err)
	}
	if err := wrong.Put(context.Background(), Key(""), []byte("{}")); !engine.IsAdapter(err) {
		t.Errorf("Put(no recipients) error = %v, want adapter error", err)
	}

	if err := inner.Put(context.Background(), "/plain/config", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(context.Background(), "/plain/config"); !engine.IsAdapter(err) {
		t.Errorf("Get(plaintext) error = %v, want adapter error", err)
	}
}

func TestParseKeys(t *testing.T) {
	identity, _ := age.GenerateX25519Identity()
	recipients, err := ParseRecipients([]string{" " + identity.Recipient().String() + " "})
	if err != nil || len(recipients) != 1 {
		t.Fatalf("ParseRecipients() = %v, %v", recipients, err)
	}
	if _, err := ParseRecipients([]string{"age1invalid"}); err == nil {
		t.Error("ParseRecipients(invalid) succeeded")
	}

	path := filepath.Join(t.TempDir(), "identity.txt")
	content := "# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	ids, err := LoadIdentities(path)
	if err != nil || len(ids) != 1 {
		t.Fatalf("LoadIdentities() = %v, %v", ids, err)
	}
}

func TestVerifyAccount(t *testing.T) {
	ctx := context.Background()
	if err := VerifyAccount(ctx, fakeSTS{account: "123456789012"}, "123456789012"); err != nil {
		t.Errorf("VerifyAccount(match) error = %v", err)
	}
	err := VerifyAccount(ctx, fakeSTS{account: "210987654321"}, "123456789012")
	if !engine.HasCode(err, engine.ErrCodeAccountMismatch) {
		t.Errorf("VerifyAccount(mismatch) error = %v", err)
	}
}

func TestNewBackends(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, Config{Backend: BackendMemory}, "", testLogger)
	if err != nil || m.Name() != "memory" {
		t.Fatalf("New(memory) = %v, %v", m, err)
	}

	identity, _ := age.GenerateX25519Identity()
	m, err = New(ctx, Config{
		Backend:    BackendMemory,
		Encryption: EncryptionConfig{Recipients: []string{identity.Recipient().String()}},
	}, "", testLogger)
	if err != nil || m.Name() != "memory+age" {
		t.Fatalf("New(memory+age) = %v, %v", m, err)
	}

	if _, err := New(ctx, Config{Backend: "ftp"}, "", testLogger); err == nil {
		t.Error("New(unknown) succeeded")
	}
	if _, err := New(ctx, Config{Backend: BackendRedis}, "", testLogger); err == nil {
		t.Error("New(redis without addr) succeeded")
	}
}

func TestMemoryMirrorInjectedErrors(t *testing.T) {
	m := NewMemoryMirror()
	m.PutErr = errors.New("down")
	if err := m.Put(context.Background(), "k", nil); err == nil {
		t.Error("Put() ignored PutErr")
	}
}
