package logging

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestIsRateLimit(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 429"), true},
		{errors.New("rate_limit_exceeded"), true},
		{errors.New("upstream: Too Many Requests"), true},
		{errors.New("rpc: rate limited"), true},
		{errors.New("connection reset"), false},
	}
	for _, tc := range tests {
		c.Check(IsRateLimit(tc.err), qt.Equals, tc.want, qt.Commentf("%v", tc.err))
	}
}

func TestConfigureAcceptsBareLevel(t *testing.T) {
	c := qt.New(t)
	c.Assert(Configure("debug"), qt.IsNil)
	c.Assert(Configure(""), qt.IsNil)
}
