package voting

import (
	"context"
	"crypto/ed25519"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// Signer fills the voter's signature slot of tx.
type Signer interface {
	Sign(ctx context.Context, tx *solana.Transaction) error
}

// KeypairSigner signs with a local key. Used by the smoke test and scripts.
type KeypairSigner struct {
	Key ed25519.PrivateKey
}

func (s KeypairSigner) Sign(_ context.Context, tx *solana.Transaction) error {
	if len(s.Key) != ed25519.PrivateKeySize {
		return errors.NotValidf("keypair")
	}
	return tx.Sign(s.Key)
}

// SignatureSigner applies a signature a browser wallet produced over the
// attempt's message. It is verified before the transaction is broadcast.
type SignatureSigner struct {
	Wallet    solana.PublicKey
	Signature string
}

func (s SignatureSigner) Sign(_ context.Context, tx *solana.Transaction) error {
	if s.Signature == "" {
		return ErrSignatureDeclined
	}
	sig, err := solana.SignatureFromBase58(s.Signature)
	if err != nil {
		return err
	}
	return tx.AddSignature(s.Wallet, sig)
}
