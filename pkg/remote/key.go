package remote

import (
	"strings"

	"github.com/openfroyo/agentcore/pkg/model"
)

// Key returns the key under which the document is mirrored for a parameter prefix.
func Key(prefix string) string {
	p := strings.TrimRight(strings.TrimSpace(prefix), "/")
	if p == "" {
		p = model.DefaultParameterPrefix
	}
	return p + "/config"
}
