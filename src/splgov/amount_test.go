package splgov

import (
	"encoding/json"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestAmountArithmetic(t *testing.T) {
	c := qt.New(t)

	a := AmountFromUint64(100)
	b := AmountFromUint64(50)
	c.Assert(a.Add(b).ToDecimalString(), qt.Equals, "150")
	c.Assert(a.Cmp(b), qt.Equals, 1)
	c.Assert(Amount{}.IsZero(), qt.IsTrue)
	c.Assert(Amount{}.Add(b).ToDecimalString(), qt.Equals, "50")
}

func TestAmountTryToInt64Overflow(t *testing.T) {
	c := qt.New(t)

	n, err := AmountFromUint64(math.MaxInt64).TryToInt64()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(math.MaxInt64))

	big := AmountFromUint64(math.MaxUint64)
	_, err = big.TryToInt64()
	c.Assert(err, qt.ErrorMatches, "amount 18446744073709551615 overflows int64")
}

func TestAmountJSON(t *testing.T) {
	c := qt.New(t)

	sum := AmountFromUint64(math.MaxUint64).Add(AmountFromUint64(1))
	b, err := json.Marshal(sum)
	c.Assert(err, qt.IsNil)
	c.Assert(string(b), qt.Equals, `"18446744073709551616"`)

	var back Amount
	c.Assert(json.Unmarshal(b, &back), qt.IsNil)
	c.Assert(back.Cmp(sum), qt.Equals, 0)

	c.Assert(json.Unmarshal([]byte(`12`), &back), qt.IsNil)
	c.Assert(back.ToDecimalString(), qt.Equals, "12")

	c.Assert(json.Unmarshal([]byte(`"twelve"`), &back), qt.ErrorMatches, `amount "twelve" not valid`)
}
