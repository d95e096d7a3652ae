package solana

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/juju/errors"
)

// AccountMeta describes how an instruction touches one account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader counts the signer and read-only partitions of AccountKeys.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction refers to accounts by index into the message keys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// Transaction is a message plus one signature slot per required signer.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles instructions into a legacy message paid for by payer.
func NewTransaction(instructions []Instruction, blockhash Hash, payer PublicKey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, errors.NotValidf("transaction without instructions")
	}
	msg, err := compileMessage(instructions, blockhash, payer)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}, nil
}

type keyMeta struct {
	key      PublicKey
	signer   bool
	writable bool
}

func compileMessage(instructions []Instruction, blockhash Hash, payer PublicKey) (Message, error) {
	metas := []*keyMeta{{key: payer, signer: true, writable: true}}
	index := map[PublicKey]*keyMeta{payer: metas[0]}
	add := func(pk PublicKey, signer, writable bool) {
		if m, ok := index[pk]; ok {
			m.signer = m.signer || signer
			m.writable = m.writable || writable
			return
		}
		m := &keyMeta{key: pk, signer: signer, writable: writable}
		index[pk] = m
		metas = append(metas, m)
	}
	for _, ix := range instructions {
		for _, a := range ix.Accounts {
			add(a.PublicKey, a.IsSigner, a.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	// Order: writable signers (payer first), readonly signers, writable
	// non-signers, readonly non-signers; first-seen order within each group.
	var ordered []PublicKey
	var header MessageHeader
	for _, pass := range []struct{ signer, writable bool }{{true, true}, {true, false}, {false, true}, {false, false}} {
		for _, m := range metas {
			if m.signer != pass.signer || m.writable != pass.writable {
				continue
			}
			ordered = append(ordered, m.key)
			switch {
			case m.signer && m.writable:
				header.NumRequiredSignatures++
			case m.signer:
				header.NumRequiredSignatures++
				header.NumReadonlySignedAccounts++
			case !m.writable:
				header.NumReadonlyUnsignedAccounts++
			}
		}
	}
	if len(ordered) > 256 {
		return Message{}, errors.NotValidf("message with %d accounts", len(ordered))
	}
	pos := make(map[PublicKey]uint8, len(ordered))
	for i, k := range ordered {
		pos[k] = uint8(i)
	}

	compiled := make([]CompiledInstruction, len(instructions))
	for i, ix := range instructions {
		accts := make([]uint8, len(ix.Accounts))
		for j, a := range ix.Accounts {
			accts[j] = pos[a.PublicKey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: pos[ix.ProgramID],
			Accounts:       accts,
			Data:           ix.Data,
		}
	}
	return Message{
		Header:          header,
		AccountKeys:     ordered,
		RecentBlockhash: blockhash,
		Instructions:    compiled,
	}, nil
}

// Serialize returns the wire bytes that signers sign.
func (m Message) Serialize() []byte {
	buf := []byte{m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccounts}
	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = appendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Signers returns the keys whose signatures the message requires, in slot order.
func (m Message) Signers() []PublicKey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

// FeePayer is the first signer.
func (m Message) FeePayer() PublicKey {
	return m.AccountKeys[0]
}

// AddSignature places sig into the slot of signer after verifying it over the message.
func (tx *Transaction) AddSignature(signer PublicKey, sig Signature) error {
	msg := tx.Message.Serialize()
	for i, k := range tx.Message.Signers() {
		if k != signer {
			continue
		}
		if !ed25519.Verify(ed25519.PublicKey(signer[:]), msg, sig[:]) {
			return errors.NotValidf("signature for %s", signer)
		}
		tx.Signatures[i] = sig
		return nil
	}
	return errors.NotFoundf("signer %s in transaction", signer)
}

// Sign signs the message with each private key.
func (tx *Transaction) Sign(keys ...ed25519.PrivateKey) error {
	msg := tx.Message.Serialize()
	for _, key := range keys {
		var pk PublicKey
		copy(pk[:], key.Public().(ed25519.PublicKey))
		var sig Signature
		copy(sig[:], ed25519.Sign(key, msg))
		if err := tx.AddSignature(pk, sig); err != nil {
			return err
		}
	}
	return nil
}

// Signature returns the fee payer signature, which doubles as the transaction id.
func (tx *Transaction) Signature() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// Serialize encodes the signed transaction; every signature slot must be filled.
func (tx *Transaction) Serialize() ([]byte, error) {
	for i, s := range tx.Signatures {
		if s.IsZero() {
			return nil, errors.Errorf("missing signature for %s", tx.Message.AccountKeys[i])
		}
	}
	buf := appendCompactU16(nil, len(tx.Signatures))
	for _, s := range tx.Signatures {
		buf = append(buf, s[:]...)
	}
	return append(buf, tx.Message.Serialize()...), nil
}

// EncodeMessage is the base64 form handed to external wallets for signing.
func (tx *Transaction) EncodeMessage() string {
	return base64.StdEncoding.EncodeToString(tx.Message.Serialize())
}

func appendCompactU16(buf []byte, n int) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
