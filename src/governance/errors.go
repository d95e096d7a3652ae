package governance

import (
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// IsInvalidInput reports errors the caller fixes by changing the request.
func IsInvalidInput(err error) bool {
	return errors.Is(err, errors.NotValid)
}

// IsNotFound reports a well-formed id with no account behind it.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.NotFound)
}

// IsTransient reports errors the caller fixes by retrying later.
func IsTransient(err error) bool {
	return solana.IsTransient(err)
}

func parseKey(kind, s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return pk, errors.Annotatef(err, "%s", kind)
	}
	return pk, nil
}
