package watch

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// Rule binds a glob, relative to the app root, to the tasks it triggers.
// Reload requests a full page reload without rebuilding anything.
type Rule struct {
	Glob   string   `hcl:"glob"`
	Tasks  []string `hcl:"tasks,optional"`
	Reload bool     `hcl:"reload,optional"`
}

// DefaultRules is the rule table used when none is configured.
func DefaultRules() []Rule {
	return []Rule{
		{Glob: "scss/**/*.scss", Tasks: []string{"styles"}},
		{Glob: "js/main.js", Tasks: []string{"scripts"}},
		{Glob: "images/icons/*.svg", Tasks: []string{"sprites"}},
		{Glob: "images/src/**", Tasks: []string{"images"}},
		{Glob: "**/*.html", Reload: true},
		{Glob: "html/**/*.html", Tasks: []string{"html"}},
	}
}

// ValidateRules rejects malformed globs and rules that do nothing.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if !doublestar.ValidatePattern(r.Glob) {
			return fmt.Errorf("rule %d: invalid glob pattern %q", i, r.Glob)
		}
		if len(r.Tasks) == 0 && !r.Reload {
			return fmt.Errorf("rule %d (%s): needs tasks or reload", i, r.Glob)
		}
	}
	return nil
}

// Action is what a single changed path resolves to.
type Action struct {
	Tasks  []string
	Reload bool
}

// Match evaluates every rule against rel, a slash-separated path relative
// to the app root. Task names are returned once each, in rule order.
func Match(rules []Rule, rel string) Action {
	var act Action
	seen := make(map[string]bool)
	for _, r := range rules {
		ok, err := doublestar.Match(r.Glob, rel)
		if err != nil || !ok {
			continue
		}
		if r.Reload {
			act.Reload = true
		}
		for _, name := range r.Tasks {
			if !seen[name] {
				seen[name] = true
				act.Tasks = append(act.Tasks, name)
			}
		}
	}
	return act
}

// Dispatcher turns changed paths into task triggers and reload events.
type Dispatcher struct {
	Rules []Rule
	// Trigger schedules a task run. It must not block.
	Trigger func(ctx context.Context, name string)
	// Reload asks browsers to reload for the given URL path.
	Reload func(ctx context.Context, path string)
}

// Handle dispatches one changed path.
func (d *Dispatcher) Handle(ctx context.Context, rel string) Action {
	act := Match(d.Rules, rel)
	if len(act.Tasks) == 0 && !act.Reload {
		return act
	}
	ctxlog.FromContext(ctx).Debug("Change matched watch rules.", "path", rel, "tasks", act.Tasks, "reload", act.Reload)
	for _, name := range act.Tasks {
		d.Trigger(ctx, name)
	}
	if act.Reload && d.Reload != nil {
		d.Reload(ctx, "/"+rel)
	}
	return act
}
