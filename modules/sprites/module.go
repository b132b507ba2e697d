// Package sprites packs the icon set into one SVG "stack" sprite: every
// icon is a nested <svg> addressable as sprite.svg#name, and only the
// :target icon is displayed.
package sprites

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/minify"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

const (
	svgNS      = "http://www.w3.org/2000/svg"
	stackStyle = ":root>svg{display:none}:root>svg:target{display:block}"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the sprites task, relative to the app root.
type Input struct {
	Icons  string `hcl:"icons,optional"`
	Output string `hcl:"output,optional"`
}

func newInput() any {
	return &Input{Icons: "images/icons/*.svg", Output: "images/sprite.svg"}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "sprites",
		Description: "Pack images/icons/*.svg into images/sprite.svg",
		NewInput:    newInput,
		Fn:          Run,
	})
}

// Icon is one named SVG document.
type Icon struct {
	Name string
	Data []byte
}

// Run is the handler for the sprites task.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	files, err := fsutil.Glob(env.AppRoot, input.Icons)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		ctxlog.FromContext(ctx).Warn("No icons found, sprite not written.", "pattern", input.Icons)
		return nil
	}

	icons := make([]Icon, 0, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(env.App(filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		icons = append(icons, Icon{Name: strings.TrimSuffix(path.Base(rel), path.Ext(rel)), Data: data})
	}

	sprite, err := Build(icons)
	if err != nil {
		return err
	}
	return env.WriteOutput(ctx, env.App(input.Output), sprite)
}

// Build assembles and minifies the stack sprite. Icons are emitted in the
// order given.
func Build(icons []Icon) ([]byte, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", svgNS)
	style := root.CreateElement("style")
	style.SetText(stackStyle)

	seen := make(map[string]bool)
	for _, icon := range icons {
		id := iconID(icon.Name)
		if seen[id] {
			return nil, fmt.Errorf("duplicate icon id %q", id)
		}
		seen[id] = true

		src := etree.NewDocument()
		if err := src.ReadFromBytes(icon.Data); err != nil {
			return nil, fmt.Errorf("failed to parse icon %s: %w", icon.Name, err)
		}
		srcRoot := src.Root()
		if srcRoot == nil || srcRoot.Tag != "svg" {
			return nil, fmt.Errorf("icon %s: root element is not <svg>", icon.Name)
		}

		nested := root.CreateElement("svg")
		nested.CreateAttr("id", id)
		for _, a := range srcRoot.Attr {
			switch {
			case a.Space == "" && (a.Key == "xmlns" || a.Key == "id"):
				continue
			case a.Space == "xmlns":
				// Namespace declarations move to the sprite root.
				if root.SelectAttr(a.FullKey()) == nil {
					root.CreateAttr(a.FullKey(), a.Value)
				}
				continue
			}
			nested.CreateAttr(a.FullKey(), a.Value)
		}
		for _, child := range srcRoot.ChildElements() {
			nested.AddChild(child.Copy())
		}
	}

	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	out, err := minify.SVG(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to minify sprite: %w", err)
	}
	return out, nil
}

func iconID(name string) string {
	return strings.Join(strings.Fields(name), "-")
}
