package config

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/agentcore/pkg/validate"
)

var (
	settingsSchemaOnce sync.Once
	settingsSchema     *validate.Schema
	settingsSchemaErr  error
)

func loadSettingsSchema() (*validate.Schema, error) {
	settingsSchemaOnce.Do(func() {
		settingsSchema, settingsSchemaErr = validate.CompileSchema("settings", settingsSchemaSource, "#Settings")
	})
	return settingsSchema, settingsSchemaErr
}

// checkSchema validates the raw settings file before it is decoded into Go types.
func checkSchema(data []byte) error {
	schema, err := loadSettingsSchema()
	if err != nil {
		return err
	}

	var tree interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	if tree == nil {
		return nil
	}

	violations := schema.CheckTree(tree)
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Errorf("settings do not match schema: %s", strings.Join(msgs, "; "))
}

const settingsSchemaSource = `
#Duration: int | =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"

#Settings: {
	document_path?: string & !=""
	lock_timeout?:  #Duration

	remote?: {
		backend?:          "ssm" | "s3" | "redis" | "memory"
		region?:           string
		expected_account?: =~"^[0-9]{12}$"
		ssm?: {
			secure_string?: bool
			kms_key_id?:    string
		}
		s3?: {
			bucket?:            string
			endpoint?:          =~"^https?://"
			access_key_id?:     string
			secret_access_key?: string
			use_path_style?:    bool
		}
		redis?: {
			addr?:     string
			password?: string
			db?:       int & >=0
		}
		encryption?: {
			recipients?:    [...=~"^age1[0-9a-z]+$"]
			identity_file?: string
		}
	}

	journal?: {
		enabled?:           bool
		path?:              string
		busy_timeout?:      #Duration
		conn_max_lifetime?: #Duration
	}

	policy?: {
		enabled?:  bool
		paths?:    [...string]
		disabled?: [...string]
	}

	drift?: exclude_paths?: [...string]

	watch?: debounce?: #Duration

	telemetry?: {
		service_name?:    string
		service_version?: string
		logging?: {
			level?:         "trace" | "debug" | "info" | "warn" | "error"
			format?:        "console" | "json"
			output?:        string
			enable_caller?: bool
			time_format?:   string
		}
		tracing?: {
			enabled?:        bool
			exporter?:       "otlp" | "stdout" | "none"
			endpoint?:       string
			sampling_rate?:  number & >=0 & <=1
			export_timeout?: #Duration
			headers?: [string]: string
			insecure?: bool
		}
		metrics?: {
			enabled?:        bool
			listen_address?: string
			path?:           string
			namespace?:      string
		}
	}
}
`
