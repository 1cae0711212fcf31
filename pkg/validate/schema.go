package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// Schema checks the shape of a document tree against a CUE definition.
// It complements the Go validator for documents that never went through the
// Go types, such as a payload fetched from a remote mirror.
type Schema struct {
	ctx  *cue.Context
	def  cue.Value
	mu   sync.Mutex
	name string
}

// NewSchema compiles the built-in #Document schema.
func NewSchema() (*Schema, error) {
	return CompileSchema("document", documentSchema, "#Document")
}

// CompileSchema compiles src and selects the definition at path.
func CompileSchema(name, src, path string) (*Schema, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(src, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	def := val.LookupPath(cue.ParsePath(path))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema %s has no definition %s: %w", name, path, err)
	}
	return &Schema{ctx: ctx, def: def, name: name}, nil
}

// Check validates a decoded document.
func (s *Schema) Check(doc *model.Document) []engine.Violation {
	tree, err := model.ToTree(doc)
	if err != nil {
		return []engine.Violation{schemaViolation("", err.Error())}
	}
	return s.CheckTree(tree)
}

// CheckJSON validates a raw JSON payload.
func (s *Schema) CheckJSON(data []byte) []engine.Violation {
	var tree interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return []engine.Violation{schemaViolation("", fmt.Sprintf("payload is not valid JSON: %v", err))}
	}
	return s.CheckTree(tree)
}

// CheckTree validates a generic tree of maps, slices and scalars.
func (s *Schema) CheckTree(tree interface{}) []engine.Violation {
	// A cue.Context is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.ctx.Encode(tree)
	if err := data.Err(); err != nil {
		return []engine.Violation{schemaViolation("", fmt.Sprintf("failed to encode document: %v", err))}
	}
	unified := s.def.Unify(data)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []engine.Violation
	for _, e := range cueerrors.Errors(err) {
		out = append(out, schemaViolation(strings.Join(e.Path(), "."), e.Error()))
	}
	if len(out) == 0 {
		out = append(out, schemaViolation("", err.Error()))
	}
	sortViolations(out)
	return out
}

func schemaViolation(path, msg string) engine.Violation {
	return engine.Violation{
		Code:     engine.ErrCodeSchemaViolation,
		Path:     path,
		Message:  msg,
		Severity: engine.SeverityError,
	}
}

// Numbers are typed as number rather than int because a tree decoded from
// JSON carries float64 values.
const documentSchema = `
#Region:    =~"^[a-z]{2}(-gov)?-[a-z]+-[0-9]+$"
#VersionID: =~"^V[1-9][0-9]*$"
#Timestamp: string

#Document: {
	current_environment: string
	environments: [string]: #Environment
	global_resources: #GlobalResources
}

#Environment: {
	name:   string & !=""
	region: #Region
	agent_runtimes?: [string]: #AgentRuntime
	default_agent_runtime?: string
	environment_variables?: [string]: string
	cognito?: {
		user_pool_id?:        string
		user_pool_arn?:       string
		user_pool_client_id?: string
		domain?:              string
		discovery_url?:       string
		identity_pool_id?:    string
		extra?: [string]: string
	}
	created_at: #Timestamp
	updated_at: #Timestamp
}

#AgentRuntime: {
	name:                   string & !=""
	region:                 #Region
	agent_runtime_id?:      string
	agent_runtime_arn?:     string
	description?:           string
	primary_ecr_repository: string & !=""
	versions?: [string]: #Version
	endpoints?: [string]: #VersionID
	latest_version_id?: #VersionID
	version_sequence:   number & >=0
	tags?: [string]: string
	created_at: #Timestamp
	updated_at: #Timestamp
}

#Version: {
	version_id:          #VersionID
	agent_runtime_id?:   string
	ecr_repository_name: string & !=""
	image_tag:           string & !=""
	status:              "CREATING" | "READY" | "FAILED" | "DELETING"
	execution_role_arn?: string
	network_mode?:       "PUBLIC"
	protocol?:           "HTTP" | "MCP"
	environment_variables?: [string]: string
	description?:    string
	failure_reason?: string
	created_at:      #Timestamp
}

#GlobalResources: {
	ecr_repositories: [string]: #ECRRepository
	iam_roles: [string]: #IAMRole
	sync_config: #SyncConfig
}

#ECRRepository: {
	name:                  string & !=""
	region?:               #Region
	registry_id?:          string
	repository_uri?:       string
	image_scan_on_push:    bool
	image_tag_mutability?: "MUTABLE" | "IMMUTABLE"
	available_tags?: [...string]
	created_at: #Timestamp
	last_push?: #Timestamp
	last_sync?: #Timestamp
}

#IAMRole: {
	name:         string & !=""
	arn?:         string
	path?:        string
	region?:      #Region
	description?: string
	created_at:   #Timestamp
	last_sync?:   #Timestamp
}

#SyncConfig: {
	cloud_config_enabled:   bool
	auto_sync_enabled:      bool
	parameter_store_prefix: =~"^/"
	sync_interval_minutes:  number & >=1
	last_full_sync?:        #Timestamp
	last_push?:             #Timestamp
	last_pull?:             #Timestamp
}
`
