package data

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/cache"
)

func TestEnsureParam(t *testing.T) {
	c := qt.New(t)
	c.Assert(ensureParam("u:p@tcp(h)/db", "parseTime", "true"), qt.Equals, "u:p@tcp(h)/db?parseTime=true")
	c.Assert(ensureParam("u:p@tcp(h)/db?x=1", "charset", "utf8mb4"), qt.Equals, "u:p@tcp(h)/db?x=1&charset=utf8mb4")
	c.Assert(ensureParam("db?parseTime=false", "parseTime", "true"), qt.Equals, "db?parseTime=false")
}

func TestConnectMySQLRejectsEmptyDSN(t *testing.T) {
	c := qt.New(t)
	_, err := ConnectMySQL("  ")
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestSettingsCache(t *testing.T) {
	c := qt.New(t)
	ReplaceSettings(map[string]string{"solana_rpc_url": "https://rpc.example"})
	defer ReplaceSettings(nil)

	c.Assert(GetSetting("solana_rpc_url"), qt.Equals, "https://rpc.example")
	c.Assert(GetSetting("missing"), qt.Equals, "")
}

func TestNoncesVerifyOnce(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	clk := testclock.NewClock(time.Unix(0, 0))
	n := NewNonces(cache.NewMemoryStore(clk))

	c.Assert(n.Set(ctx, "wallet", "abc"), qt.IsNil)
	got, err := n.Take(ctx, "wallet")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "abc")

	_, err = n.Take(ctx, "wallet")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}

func TestNoncesExpire(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	clk := testclock.NewClock(time.Unix(0, 0))
	n := NewNonces(cache.NewMemoryStore(clk))

	c.Assert(n.Set(ctx, "wallet", "abc"), qt.IsNil)
	clk.Advance(NonceTTL + time.Second)
	_, err := n.Take(ctx, "wallet")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)
}
