package model

import (
	"time"
)

// DefaultEndpoint is the endpoint created with a runtime's first version.
const DefaultEndpoint = "DEFAULT"

// Sync defaults.
const (
	DefaultParameterPrefix     = "/agentcore"
	DefaultSyncIntervalMinutes = 60
)

// Document is the root configuration document.
type Document struct {
	// CurrentEnvironment names the environment commands operate on by default.
	// Empty only while the document has no environments.
	CurrentEnvironment string `yaml:"current_environment" json:"current_environment"`

	// Environments maps environment name to environment.
	Environments map[string]*Environment `yaml:"environments" json:"environments" validate:"dive"`

	// GlobalResources holds the document-wide shared entities.
	GlobalResources GlobalResources `yaml:"global_resources" json:"global_resources"`
}

// Environment is a region-bound isolation unit.
type Environment struct {
	// Name is the unique environment key (e.g. "dev").
	Name string `yaml:"name" json:"name" validate:"required,resourcename"`

	// Region is the AWS region every runtime in this environment lives in.
	Region string `yaml:"region" json:"region" validate:"required,awsregion"`

	// AgentRuntimes maps runtime name to runtime.
	AgentRuntimes map[string]*AgentRuntime `yaml:"agent_runtimes,omitempty" json:"agent_runtimes,omitempty" validate:"dive"`

	// DefaultAgentRuntime optionally names the runtime used when none is given.
	DefaultAgentRuntime string `yaml:"default_agent_runtime,omitempty" json:"default_agent_runtime,omitempty"`

	// EnvironmentVariables are injected into every runtime of the environment.
	EnvironmentVariables map[string]string `yaml:"environment_variables,omitempty" json:"environment_variables,omitempty" validate:"dive,keys,envvarname,endkeys,max=4096"`

	// Cognito is the authentication block, opaque to this module.
	Cognito *CognitoConfig `yaml:"cognito,omitempty" json:"cognito,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// AgentRuntime is one deployable agent identity within an environment.
type AgentRuntime struct {
	// Name is unique within the environment.
	Name string `yaml:"name" json:"name" validate:"required,agentname"`

	// Region must equal the owning environment's region.
	Region string `yaml:"region" json:"region" validate:"required,awsregion"`

	// AgentRuntimeID is assigned after the first successful creation.
	AgentRuntimeID string `yaml:"agent_runtime_id,omitempty" json:"agent_runtime_id,omitempty"`

	// AgentRuntimeARN is assigned after the first successful creation.
	AgentRuntimeARN string `yaml:"agent_runtime_arn,omitempty" json:"agent_runtime_arn,omitempty" validate:"omitempty,awsarn"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// PrimaryECRRepository names an entry of GlobalResources.ECRRepositories.
	PrimaryECRRepository string `yaml:"primary_ecr_repository" json:"primary_ecr_repository" validate:"required,reponame"`

	// Versions maps version id to an immutable version record.
	Versions map[string]AgentRuntimeVersion `yaml:"versions,omitempty" json:"versions,omitempty" validate:"dive"`

	// Endpoints maps endpoint name to version id.
	Endpoints map[string]string `yaml:"endpoints,omitempty" json:"endpoints,omitempty" validate:"dive,keys,endpointname,endkeys,versionid"`

	// LatestVersion is the id of the most recently created remaining version.
	LatestVersion string `yaml:"latest_version_id,omitempty" json:"latest_version_id,omitempty" validate:"omitempty,versionid"`

	// VersionSequence is the highest ordinal ever allocated. Ordinals are never reused.
	VersionSequence int `yaml:"version_sequence" json:"version_sequence" validate:"gte=0"`

	Tags map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// VersionStatus is the lifecycle status of a version.
type VersionStatus string

const (
	// VersionCreating is the initial status while provisioning runs.
	VersionCreating VersionStatus = "CREATING"

	// VersionReady means the version was provisioned successfully.
	VersionReady VersionStatus = "READY"

	// VersionFailed means provisioning failed. See FailureReason.
	VersionFailed VersionStatus = "FAILED"

	// VersionDeleting marks an explicit removal request.
	VersionDeleting VersionStatus = "DELETING"
)

// NetworkMode is the runtime network configuration.
type NetworkMode string

// NetworkModePublic is the only network mode the managed service offers.
const NetworkModePublic NetworkMode = "PUBLIC"

// ServerProtocol is the protocol the runtime container serves.
type ServerProtocol string

const (
	ProtocolHTTP ServerProtocol = "HTTP"
	ProtocolMCP  ServerProtocol = "MCP"
)

// AgentRuntimeVersion is an immutable record of one deployment snapshot.
type AgentRuntimeVersion struct {
	// VersionID is the ordinal token, e.g. "V3".
	VersionID string `yaml:"version_id" json:"version_id" validate:"required,versionid"`

	// AgentRuntimeID is the remote runtime id this version was deployed to.
	AgentRuntimeID string `yaml:"agent_runtime_id,omitempty" json:"agent_runtime_id,omitempty"`

	// ECRRepositoryName names the repository holding the image.
	ECRRepositoryName string `yaml:"ecr_repository_name" json:"ecr_repository_name" validate:"required,reponame"`

	ImageTag string `yaml:"image_tag" json:"image_tag" validate:"required,max=128"`

	Status VersionStatus `yaml:"status" json:"status" validate:"required,oneof=CREATING READY FAILED DELETING"`

	ExecutionRoleARN string `yaml:"execution_role_arn,omitempty" json:"execution_role_arn,omitempty" validate:"omitempty,awsarn"`

	NetworkMode NetworkMode `yaml:"network_mode,omitempty" json:"network_mode,omitempty" validate:"omitempty,oneof=PUBLIC"`

	Protocol ServerProtocol `yaml:"protocol,omitempty" json:"protocol,omitempty" validate:"omitempty,oneof=HTTP MCP"`

	EnvironmentVariables map[string]string `yaml:"environment_variables,omitempty" json:"environment_variables,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	FailureReason string `yaml:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// GlobalResources holds document-wide entities referenced by name from environments.
type GlobalResources struct {
	ECRRepositories map[string]*ECRRepository `yaml:"ecr_repositories" json:"ecr_repositories" validate:"dive"`
	IAMRoles        map[string]*IAMRoleConfig `yaml:"iam_roles" json:"iam_roles" validate:"dive"`
	SyncConfig      SyncConfig                `yaml:"sync_config" json:"sync_config"`
}

// ECRRepository is a shared container image repository.
type ECRRepository struct {
	Name               string     `yaml:"name" json:"name" validate:"required,reponame"`
	Region             string     `yaml:"region,omitempty" json:"region,omitempty" validate:"omitempty,awsregion"`
	RegistryID         string     `yaml:"registry_id,omitempty" json:"registry_id,omitempty"`
	RepositoryURI      string     `yaml:"repository_uri,omitempty" json:"repository_uri,omitempty"`
	ImageScanOnPush    bool       `yaml:"image_scan_on_push" json:"image_scan_on_push"`
	ImageTagMutability string     `yaml:"image_tag_mutability,omitempty" json:"image_tag_mutability,omitempty" validate:"omitempty,oneof=MUTABLE IMMUTABLE"`
	AvailableTags      []string   `yaml:"available_tags,omitempty" json:"available_tags,omitempty"`
	CreatedAt          time.Time  `yaml:"created_at" json:"created_at"`
	LastPush           *time.Time `yaml:"last_push,omitempty" json:"last_push,omitempty"`
	LastSync           *time.Time `yaml:"last_sync,omitempty" json:"last_sync,omitempty"`
}

// IAMRoleConfig is a shared execution role.
type IAMRoleConfig struct {
	Name        string     `yaml:"name" json:"name" validate:"required"`
	ARN         string     `yaml:"arn,omitempty" json:"arn,omitempty" validate:"omitempty,awsarn"`
	Path        string     `yaml:"path,omitempty" json:"path,omitempty" validate:"omitempty,startswith=/"`
	Region      string     `yaml:"region,omitempty" json:"region,omitempty" validate:"omitempty,awsregion"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	LastSync    *time.Time `yaml:"last_sync,omitempty" json:"last_sync,omitempty"`
}

// SyncConfig controls cloud synchronization of the document.
type SyncConfig struct {
	CloudConfigEnabled bool `yaml:"cloud_config_enabled" json:"cloud_config_enabled"`
	AutoSyncEnabled    bool `yaml:"auto_sync_enabled" json:"auto_sync_enabled"`

	// ParameterStorePrefix namespaces the remote key.
	ParameterStorePrefix string `yaml:"parameter_store_prefix" json:"parameter_store_prefix" validate:"required,startswith=/"`

	SyncIntervalMinutes int `yaml:"sync_interval_minutes" json:"sync_interval_minutes" validate:"gte=1"`

	LastFullSync *time.Time `yaml:"last_full_sync,omitempty" json:"last_full_sync,omitempty"`
	LastPush     *time.Time `yaml:"last_push,omitempty" json:"last_push,omitempty"`
	LastPull     *time.Time `yaml:"last_pull,omitempty" json:"last_pull,omitempty"`
}

// CognitoConfig is the authentication block of an environment.
type CognitoConfig struct {
	UserPoolID       string            `yaml:"user_pool_id,omitempty" json:"user_pool_id,omitempty"`
	UserPoolARN      string            `yaml:"user_pool_arn,omitempty" json:"user_pool_arn,omitempty"`
	UserPoolClientID string            `yaml:"user_pool_client_id,omitempty" json:"user_pool_client_id,omitempty"`
	Domain           string            `yaml:"domain,omitempty" json:"domain,omitempty"`
	DiscoveryURL     string            `yaml:"discovery_url,omitempty" json:"discovery_url,omitempty"`
	IdentityPoolID   string            `yaml:"identity_pool_id,omitempty" json:"identity_pool_id,omitempty"`
	Extra            map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}
