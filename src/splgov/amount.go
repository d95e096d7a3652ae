package splgov

import (
	"encoding/json"
	"math/big"

	"github.com/juju/errors"
)

// Amount is an arbitrary-precision token quantity. The zero value is 0.
type Amount struct {
	v *big.Int
}

func AmountFromUint64(u uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(u)}
}

// ParseAmount reads a base-10 integer.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, errors.NotValidf("amount %q", s)
	}
	return Amount{v: v}, nil
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// TryToInt64 converts exactly or fails; it never truncates.
func (a Amount) TryToInt64() (int64, error) {
	b := a.big()
	if !b.IsInt64() {
		return 0, errors.Errorf("amount %s overflows int64", b.String())
	}
	return b.Int64(), nil
}

func (a Amount) ToDecimalString() string {
	return a.big().String()
}

func (a Amount) String() string { return a.ToDecimalString() }

func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// MarshalJSON emits a decimal string so values above 2^53 survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDecimalString())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return errors.NotValidf("amount %s", string(b))
		}
		s = n.String()
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
