package core

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"
)

type stubClient struct{ model string }

func (s stubClient) Complete(context.Context, []Message, Options) (string, error) {
	return s.model, nil
}

func TestRegisterProviderAliases(t *testing.T) {
	c := qt.New(t)
	RegisterProvider("stub-test", func(cfg FactoryConfig) (Client, error) {
		return stubClient{model: cfg.Model}, nil
	}, "Stub-Alias")

	cl, err := NewClient(FactoryConfig{Provider: "STUB-ALIAS", Model: "m1"})
	c.Assert(err, qt.IsNil)
	out, err := cl.Complete(context.Background(), nil, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "m1")

	_, err = NewClient(FactoryConfig{Provider: "missing"})
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func TestResolveModelName(t *testing.T) {
	c := qt.New(t)
	c.Assert(ResolveModelName("groq", ""), qt.Equals, "llama-3.1-8b-instant")
	c.Assert(ResolveModelName(" Anthropic ", ""), qt.Equals, "claude-3-5-haiku-latest")
	c.Assert(ResolveModelName("groq", "custom"), qt.Equals, "custom")
	c.Assert(ResolveModelName("mystery", ""), qt.Equals, "unknown")
}

func TestExtraOr(t *testing.T) {
	c := qt.New(t)
	cfg := FactoryConfig{Extra: map[string]string{"k": " v "}}
	c.Assert(cfg.ExtraOr("k", "d"), qt.Equals, "v")
	c.Assert(cfg.ExtraOr("missing", "d"), qt.Equals, "d")
}
