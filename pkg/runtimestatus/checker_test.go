package runtimestatus

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

type fakeControlPlane struct {
	out *bedrockagentcorecontrol.GetAgentRuntimeOutput
	err error
	in  *bedrockagentcorecontrol.GetAgentRuntimeInput
}

func (f *fakeControlPlane) GetAgentRuntime(_ context.Context, in *bedrockagentcorecontrol.GetAgentRuntimeInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetAgentRuntimeOutput, error) {
	f.in = in
	return f.out, f.err
}

func request() engine.ProvisionRequest {
	return engine.ProvisionRequest{
		Environment:  "dev",
		Region:       "us-west-2",
		AgentRuntime: "my-bot",
		VersionID:    "V3",
		RemoteID:     "my_bot-abc123",
	}
}

func TestProvisionStatusMapping(t *testing.T) {
	tests := []struct {
		remote types.AgentRuntimeStatus
		want   engine.ProvisionStatus
	}{
		{types.AgentRuntimeStatusReady, engine.ProvisionReady},
		{types.AgentRuntimeStatusCreating, engine.ProvisionCreating},
		{types.AgentRuntimeStatusUpdating, engine.ProvisionCreating},
		{types.AgentRuntimeStatusCreateFailed, engine.ProvisionFailed},
		{types.AgentRuntimeStatusUpdateFailed, engine.ProvisionFailed},
		{types.AgentRuntimeStatusDeleting, engine.ProvisionFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.remote), func(t *testing.T) {
			fake := &fakeControlPlane{out: &bedrockagentcorecontrol.GetAgentRuntimeOutput{
				Status:          tt.remote,
				AgentRuntimeId:  aws.String("my_bot-abc123"),
				AgentRuntimeArn: aws.String("arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/my_bot-abc123"),
			}}
			outcome, err := NewChecker(fake, zerolog.New(nil).Level(zerolog.Disabled)).Provision(context.Background(), request())
			if err != nil {
				t.Fatalf("Provision() error = %v", err)
			}
			if outcome.Status != tt.want {
				t.Errorf("Status = %s, want %s", outcome.Status, tt.want)
			}
			if outcome.RemoteARN == "" || outcome.RemoteID != "my_bot-abc123" {
				t.Errorf("outcome = %+v", outcome)
			}
			if tt.want == engine.ProvisionFailed && outcome.FailureReason == "" {
				t.Error("FailureReason empty for failed status")
			}
			if aws.ToString(fake.in.AgentRuntimeVersion) != "3" {
				t.Errorf("AgentRuntimeVersion = %q, want 3", aws.ToString(fake.in.AgentRuntimeVersion))
			}
		})
	}
}

func TestProvisionFailureReason(t *testing.T) {
	fake := &fakeControlPlane{out: &bedrockagentcorecontrol.GetAgentRuntimeOutput{
		Status:        types.AgentRuntimeStatusCreateFailed,
		FailureReason: aws.String("image not found"),
	}}
	outcome, err := NewChecker(fake, zerolog.New(nil).Level(zerolog.Disabled)).Provision(context.Background(), request())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.FailureReason != "image not found" || outcome.RemoteID != "my_bot-abc123" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestProvisionErrors(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	ctx := context.Background()

	notFound := &fakeControlPlane{err: &types.ResourceNotFoundException{Message: aws.String("gone")}}
	outcome, err := NewChecker(notFound, logger).Provision(ctx, request())
	if err != nil || outcome.Status != engine.ProvisionFailed {
		t.Errorf("Provision(not found) = %+v, %v, want FAILED outcome", outcome, err)
	}

	broken := &fakeControlPlane{err: errors.New("boom")}
	if _, err := NewChecker(broken, logger).Provision(ctx, request()); !engine.IsAdapter(err) {
		t.Errorf("Provision(api error) error = %v, want adapter error", err)
	}

	req := request()
	req.RemoteID = ""
	if _, err := NewChecker(broken, logger).Provision(ctx, req); err == nil {
		t.Error("Provision(no remote id) succeeded")
	}

	req = request()
	req.VersionID = "latest"
	if _, err := NewChecker(broken, logger).Provision(ctx, req); !engine.HasCode(err, engine.ErrCodeInvalidVersionID) {
		t.Errorf("Provision(bad version) error = %v", err)
	}
}
