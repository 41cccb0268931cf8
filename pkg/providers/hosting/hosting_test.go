package hosting

import (
	"context"
	"strings"
	"testing"

	"github.com/launchforge/launchforge/pkg/providers"
)

type call struct {
	args []string
	opts providers.RunOptions
}

type scriptedRunner struct {
	calls   []call
	results map[string]*providers.RunResult
	errs    map[string]error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args []string, opts providers.RunOptions) (*providers.RunResult, error) {
	r.calls = append(r.calls, call{args: args, opts: opts})
	key := name + " " + strings.Join(args, " ")
	for prefix, result := range r.results {
		if strings.HasPrefix(key, prefix) {
			return result, r.errs[prefix]
		}
	}
	return &providers.RunResult{}, nil
}

func TestLinkUsesScopeAndReturnsProjectID(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]*providers.RunResult{
			"vercel project inspect": {Stdout: `{"id":"prj_123"}`},
		},
	}
	a := New(runner, "acme-team", "tok")

	id, err := a.Link(context.Background(), "/work/demo", "demo-a1b2c3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "prj_123" {
		t.Errorf("got %q, want prj_123", id)
	}

	link := runner.calls[0]
	joined := strings.Join(link.args, " ")
	if !strings.Contains(joined, "--project demo-a1b2c3") {
		t.Errorf("link missing project flag: %v", link.args)
	}
	if !strings.Contains(joined, "--scope acme-team") {
		t.Errorf("link missing scope flag: %v", link.args)
	}
	if link.opts.Dir != "/work/demo" {
		t.Errorf("link should run in the working copy, got %q", link.opts.Dir)
	}
}

func TestAddEnvSendsValueViaStdin(t *testing.T) {
	runner := &scriptedRunner{}
	a := New(runner, "", "tok")

	err := a.AddEnv(context.Background(), "/work/demo", "API_SECRET", "sup3r", []string{"production", "preview"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected one call per target, got %d", len(runner.calls))
	}
	for _, c := range runner.calls {
		if c.opts.Stdin != "sup3r" {
			t.Errorf("value must travel via stdin, got %q", c.opts.Stdin)
		}
		if strings.Contains(strings.Join(c.args, " "), "sup3r") {
			t.Error("secret value must not appear in argv")
		}
	}
}

func TestProductionAliasSkipsAutoAssigned(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]*providers.RunResult{
			"vercel alias ls": {Stdout: `[
				{"alias":"demo-a1b2c3-git-main-acme.vercel.app","autoAssigned":true},
				{"alias":"demo.example.com","autoAssigned":false}
			]`},
		},
	}
	a := New(runner, "", "tok")

	alias, err := a.ProductionAlias(context.Background(), "demo-a1b2c3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alias != "demo.example.com" {
		t.Errorf("got %q, want the human alias", alias)
	}
}

func TestProductionAliasOnlyAutoAssigned(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]*providers.RunResult{
			"vercel alias ls": {Stdout: `[{"alias":"demo-a1b2c3-git-main-acme.vercel.app","autoAssigned":true}]`},
		},
	}
	a := New(runner, "", "tok")

	alias, err := a.ProductionAlias(context.Background(), "demo-a1b2c3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alias != "" {
		t.Errorf("expected empty alias, got %q", alias)
	}
}
