package splgov

import (
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

var (
	governanceSeed  = []byte("governance")
	realmConfigSeed = []byte("realm-config")
)

func TokenOwnerRecordAddress(programID, realm, mint, owner solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{governanceSeed, realm[:], mint[:], owner[:]}, programID)
	return pk, errors.Annotate(err, "token owner record address")
}

func VoteRecordAddress(programID, proposal, tokenOwnerRecord solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{governanceSeed, proposal[:], tokenOwnerRecord[:]}, programID)
	return pk, errors.Annotate(err, "vote record address")
}

func RealmConfigAddress(programID, realm solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{realmConfigSeed, realm[:]}, programID)
	return pk, errors.Annotate(err, "realm config address")
}
