package validate

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/agentcore/pkg/model"
)

var (
	regionPattern       = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-\d+$`)
	resourceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,62}$`)
	agentNamePattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,63}$`)
	repoNamePattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,254}$`)
	endpointNamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,48}$`)
	envVarNamePattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	arnPattern          = regexp.MustCompile(`^arn:aws[a-z-]*:[a-z0-9-]+:[a-z0-9-]*:\d{0,12}:.+$`)
)

// newStructValidator returns a validator with the document's custom tags registered.
// Field names in errors use the JSON names so paths match the file format.
func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	patterns := map[string]*regexp.Regexp{
		"awsregion":    regionPattern,
		"resourcename": resourceNamePattern,
		"agentname":    agentNamePattern,
		"reponame":     repoNamePattern,
		"endpointname": endpointNamePattern,
		"envvarname":   envVarNamePattern,
		"awsarn":       arnPattern,
	}
	for tag, re := range patterns {
		re := re
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}
	_ = v.RegisterValidation("versionid", func(fl validator.FieldLevel) bool {
		return model.IsVersionID(fl.Field().String())
	})
	return v
}

// IsValidRegion reports whether s looks like an AWS region name.
func IsValidRegion(s string) bool {
	return regionPattern.MatchString(s)
}

// IsValidAgentName reports whether s is a valid agent runtime name.
func IsValidAgentName(s string) bool {
	return agentNamePattern.MatchString(s)
}

// IsValidEndpointName reports whether s is a valid endpoint name.
func IsValidEndpointName(s string) bool {
	return endpointNamePattern.MatchString(s)
}

// IsValidRepositoryName reports whether s is a valid ECR repository name.
func IsValidRepositoryName(s string) bool {
	return repoNamePattern.MatchString(s)
}

// fieldPath converts a validator namespace such as
// "Document.environments[dev].agent_runtimes[bot].region" into a dotted path.
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}
