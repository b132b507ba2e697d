package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dag"
	"github.com/specialistvlad/assetgrid/internal/task"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	envType     = reflect.TypeOf((*task.Env)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Validate checks that every handler has a callable signature matching its
// input struct, that every pipeline only refers to registered names and that
// every pipeline compiles into an acyclic plan.
func (r *Registry) Validate() error {
	var errs []string

	for _, t := range r.Tasks() {
		if err := checkHandler(t); err != nil {
			errs = append(errs, fmt.Sprintf("task '%s': %v", t.Name, err))
		}
	}

	refsOK := true
	for _, p := range r.Pipelines() {
		for _, name := range refNames(p) {
			if _, ok := r.Resolve(name); !ok {
				refsOK = false
				errs = append(errs, fmt.Sprintf("pipeline '%s': refers to unknown task or pipeline '%s'", p.Name, name))
			}
		}
	}

	// Unknown refs would be reported again by Compile.
	if refsOK {
		for _, p := range r.Pipelines() {
			if _, err := dag.Compile(dag.Ref(p.Name), r.Resolve); err != nil {
				errs = append(errs, fmt.Sprintf("pipeline '%s': %v", p.Name, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func checkHandler(t *RegisteredTask) error {
	if t.Fn == nil {
		return fmt.Errorf("no handler function")
	}
	fnType := reflect.TypeOf(t.Fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler is %s, not a function", fnType)
	}
	if fnType.NumOut() != 1 || fnType.Out(0) != errorType {
		return fmt.Errorf("handler must return exactly one error")
	}

	wantIn := 2
	if t.NewInput != nil {
		wantIn = 3
	}
	if fnType.NumIn() != wantIn {
		return fmt.Errorf("handler takes %d arguments, want %d", fnType.NumIn(), wantIn)
	}
	if fnType.In(0) != contextType {
		return fmt.Errorf("first argument must be context.Context")
	}
	if fnType.In(1) != envType {
		return fmt.Errorf("second argument must be *task.Env")
	}
	if t.NewInput != nil {
		inputType := reflect.TypeOf(t.NewInput())
		if inputType == nil || inputType.Kind() != reflect.Pointer || inputType.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("NewInput must return a pointer to a struct")
		}
		if fnType.In(2) != inputType {
			return fmt.Errorf("third argument is %s but NewInput returns %s", fnType.In(2), inputType)
		}
	}
	return nil
}
