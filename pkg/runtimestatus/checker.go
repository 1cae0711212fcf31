package runtimestatus

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// ControlPlaneAPI is the subset of the control-plane client used by Checker.
type ControlPlaneAPI interface {
	GetAgentRuntime(ctx context.Context, in *bedrockagentcorecontrol.GetAgentRuntimeInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetAgentRuntimeOutput, error)
}

// Checker reads runtime status from the control plane.
type Checker struct {
	client ControlPlaneAPI
	logger zerolog.Logger
}

// NewChecker creates a status checker.
func NewChecker(client ControlPlaneAPI, logger zerolog.Logger) *Checker {
	return &Checker{client: client, logger: logger.With().Str("component", "runtimestatus").Logger()}
}

// NewFromConfig creates a checker using an AWS configuration.
func NewFromConfig(cfg aws.Config, logger zerolog.Logger) *Checker {
	return NewChecker(bedrockagentcorecontrol.NewFromConfig(cfg), logger)
}

// Provision looks up the control-plane runtime version matching req. Version
// "V<n>" maps to control-plane runtime version "n".
func (c *Checker) Provision(ctx context.Context, req engine.ProvisionRequest) (*engine.ProvisionOutcome, error) {
	if req.RemoteID == "" {
		return nil, engine.NewPreconditionError(engine.ErrCodeNotFound,
			"agent runtime has no control-plane id yet").
			WithResource(model.RuntimePath(req.Environment, req.AgentRuntime))
	}
	ordinal, err := model.ParseVersionID(req.VersionID)
	if err != nil {
		return nil, engine.NewValidationError(err.Error(), []engine.Violation{{
			Code:     engine.ErrCodeInvalidVersionID,
			Path:     model.RuntimePath(req.Environment, req.AgentRuntime),
			Message:  err.Error(),
			Severity: engine.SeverityError,
		}})
	}

	out, err := c.client.GetAgentRuntime(ctx, &bedrockagentcorecontrol.GetAgentRuntimeInput{
		AgentRuntimeId:      aws.String(req.RemoteID),
		AgentRuntimeVersion: aws.String(strconv.Itoa(ordinal)),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return &engine.ProvisionOutcome{
				Status:        engine.ProvisionFailed,
				RemoteID:      req.RemoteID,
				FailureReason: fmt.Sprintf("runtime %s version %d not found", req.RemoteID, ordinal),
			}, nil
		}
		return nil, engine.NewAdapterError(fmt.Sprintf("GetAgentRuntime %q", req.RemoteID), err).
			WithOperation("runtimestatus.get")
	}

	outcome := &engine.ProvisionOutcome{
		Status:    statusOf(out.Status),
		RemoteID:  aws.ToString(out.AgentRuntimeId),
		RemoteARN: aws.ToString(out.AgentRuntimeArn),
	}
	if outcome.RemoteID == "" {
		outcome.RemoteID = req.RemoteID
	}
	if outcome.Status == engine.ProvisionFailed {
		outcome.FailureReason = aws.ToString(out.FailureReason)
		if outcome.FailureReason == "" {
			outcome.FailureReason = "runtime entered status " + string(out.Status)
		}
	}

	c.logger.Debug().
		Str("runtime", req.AgentRuntime).
		Str("version", req.VersionID).
		Str("remote_status", string(out.Status)).
		Str("status", string(outcome.Status)).
		Msg("Checked runtime status")
	return outcome, nil
}

func statusOf(s types.AgentRuntimeStatus) engine.ProvisionStatus {
	switch s {
	case types.AgentRuntimeStatusReady:
		return engine.ProvisionReady
	case types.AgentRuntimeStatusCreateFailed,
		types.AgentRuntimeStatusUpdateFailed,
		types.AgentRuntimeStatusDeleting:
		return engine.ProvisionFailed
	default:
		return engine.ProvisionCreating
	}
}

var _ engine.Provisioner = (*Checker)(nil)
