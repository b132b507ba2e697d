package styles

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// parseTargets converts targets like "chrome111" into esbuild engines.
func parseTargets(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		i := strings.IndexAny(t, "0123456789")
		if i <= 0 {
			return nil, fmt.Errorf("invalid target %q: want a browser name followed by a version", t)
		}
		name, ok := engineNames[strings.ToLower(t[:i])]
		if !ok {
			return nil, fmt.Errorf("invalid target %q: unknown browser %q", t, t[:i])
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}
	return engines, nil
}
