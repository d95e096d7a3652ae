package solana

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/juju/errors"
)

const (
	maxSeedLength = 32
	maxSeeds      = 16
	pdaMarker     = "ProgramDerivedAddress"
)

var errOnCurve = errors.New("derived address lies on the ed25519 curve")

// CreateProgramAddress derives the address for seeds (bump included) under programID.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > maxSeeds {
		return PublicKey{}, errors.NotValidf("%d seeds", len(seeds))
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return PublicKey{}, errors.NotValidf("seed of length %d", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	sum := h.Sum(nil)
	if isOnCurve(sum) {
		return PublicKey{}, errOnCurve
	}
	var pk PublicKey
	copy(pk[:], sum)
	return pk, nil
}

// FindProgramAddress searches bumps from 255 down for the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if err != errOnCurve {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, errors.Errorf("no viable bump for program %s", programID)
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
