package terrain

import (
	"strings"
	"testing"
)

type fakeModule struct {
	name string
	prio int
	deps []string
}

func (f *fakeModule) Name() string                                { return f.name }
func (f *fakeModule) Priority() int                               { return f.prio }
func (f *fakeModule) Dependencies() []string                      { return f.deps }
func (f *fakeModule) Generate(ctx *Context) error                 { return nil }
func (f *fakeModule) DataAt(x, y int, ctx *Context) Data          { return Data{} }
func (f *fakeModule) AffectsPosition(x, y int, ctx *Context) bool { return true }

func names(mods []Module) string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name()
	}
	return strings.Join(out, ",")
}

func TestOrder_DependenciesFirst(t *testing.T) {
	mods := []Module{
		&fakeModule{name: "hydrology", prio: 80, deps: []string{"geology", "elevation"}},
		&fakeModule{name: "elevation", prio: 100, deps: []string{"geology"}},
		&fakeModule{name: "geology", prio: 120},
	}
	out, err := Order(mods)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if got := names(out); got != "geology,elevation,hydrology" {
		t.Fatalf("order: %s", got)
	}
}

func TestOrder_PriorityBreaksTies(t *testing.T) {
	mods := []Module{
		&fakeModule{name: "a", prio: 10},
		&fakeModule{name: "b", prio: 90},
		&fakeModule{name: "c", prio: 50},
	}
	out, err := Order(mods)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if got := names(out); got != "b,c,a" {
		t.Fatalf("order: %s", got)
	}
}

func TestOrder_CycleIsConfigurationError(t *testing.T) {
	mods := []Module{
		&fakeModule{name: "a", deps: []string{"b"}},
		&fakeModule{name: "b", deps: []string{"a"}},
	}
	if _, err := Order(mods); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestOrder_MissingDependency(t *testing.T) {
	mods := []Module{&fakeModule{name: "a", deps: []string{"ghost"}}}
	if _, err := Order(mods); err == nil {
		t.Fatalf("expected missing dependency error")
	}
}

func TestOrder_DuplicateName(t *testing.T) {
	mods := []Module{&fakeModule{name: "a"}, &fakeModule{name: "a"}}
	if _, err := Order(mods); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
