package webserver

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

const tokenTTL = time.Hour

// challengeMessage is the exact text a wallet signs to sign in.
func challengeMessage(nonce string) string {
	return "Sign in to DAO Radar\nNonce: " + nonce
}

// verifySignature checks a base58 ed25519 signature by wallet over message.
func verifySignature(wallet, sigB58, message string) error {
	pk, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return err
	}
	sig, err := solana.SignatureFromBase58(sigB58)
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pk[:]), []byte(message), sig[:]) {
		return errors.NotValidf("signature by %s", wallet)
	}
	return nil
}

func issueJWT(wallet string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"wallet": wallet,
		"exp":    time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(secret)
}
