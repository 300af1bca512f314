// Package txn compiles Solana legacy transactions for the fixed
// token-creation instruction sequence.
package txn

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-token-forge/internal/solkey"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey     solkey.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation.
type Instruction struct {
	ProgramID solkey.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Message is a compiled legacy transaction message.
type Message struct {
	NumRequiredSignatures       int
	NumReadonlySignedAccounts   int
	NumReadonlyUnsignedAccounts int
	AccountKeys                 []solkey.Pubkey
	RecentBlockhash             string
	Instructions                []compiledInstruction
}

type compiledInstruction struct {
	ProgramIDIndex int
	AccountIndexes []int
	Data           []byte
}

// appendCompactU16 appends a shortvec-encoded length.
func appendCompactU16(buf []byte, v int) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// CompileMessage orders account keys per the legacy message layout:
// fee payer first, then remaining writable signers, readonly signers,
// writable non-signers, readonly non-signers.
func CompileMessage(feePayer solkey.Pubkey, recentBlockhash string, instructions []Instruction) (*Message, error) {
	if feePayer.IsZero() {
		return nil, fmt.Errorf("fee payer is required")
	}
	if recentBlockhash == "" {
		return nil, fmt.Errorf("recent blockhash is required")
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("at least one instruction is required")
	}

	// Merge metas: a key referenced as signer or writable anywhere keeps
	// that capability.
	type meta struct {
		signer   bool
		writable bool
		order    int
	}
	metas := make(map[solkey.Pubkey]*meta)
	order := 0
	upsert := func(key solkey.Pubkey, signer, writable bool) {
		m, ok := metas[key]
		if !ok {
			metas[key] = &meta{signer: signer, writable: writable, order: order}
			order++
			return
		}
		m.signer = m.signer || signer
		m.writable = m.writable || writable
	}

	upsert(feePayer, true, true)
	for _, ix := range instructions {
		for _, acct := range ix.Accounts {
			upsert(acct.Pubkey, acct.IsSigner, acct.IsWritable)
		}
		upsert(ix.ProgramID, false, false)
	}

	type entry struct {
		key solkey.Pubkey
		m   *meta
	}
	var writableSigners, readonlySigners, writableOthers, readonlyOthers []entry
	for key, m := range metas {
		if key == feePayer {
			continue
		}
		e := entry{key, m}
		switch {
		case m.signer && m.writable:
			writableSigners = append(writableSigners, e)
		case m.signer:
			readonlySigners = append(readonlySigners, e)
		case m.writable:
			writableOthers = append(writableOthers, e)
		default:
			readonlyOthers = append(readonlyOthers, e)
		}
	}
	byOrder := func(group []entry) {
		for i := 1; i < len(group); i++ {
			for j := i; j > 0 && group[j].m.order < group[j-1].m.order; j-- {
				group[j], group[j-1] = group[j-1], group[j]
			}
		}
	}
	byOrder(writableSigners)
	byOrder(readonlySigners)
	byOrder(writableOthers)
	byOrder(readonlyOthers)

	keys := []solkey.Pubkey{feePayer}
	for _, e := range writableSigners {
		keys = append(keys, e.key)
	}
	for _, e := range readonlySigners {
		keys = append(keys, e.key)
	}
	for _, e := range writableOthers {
		keys = append(keys, e.key)
	}
	for _, e := range readonlyOthers {
		keys = append(keys, e.key)
	}

	index := make(map[solkey.Pubkey]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	msg := &Message{
		NumRequiredSignatures:       1 + len(writableSigners) + len(readonlySigners),
		NumReadonlySignedAccounts:   len(readonlySigners),
		NumReadonlyUnsignedAccounts: len(readonlyOthers),
		AccountKeys:                 keys,
		RecentBlockhash:             recentBlockhash,
	}

	for _, ix := range instructions {
		ci := compiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Data:           ix.Data,
		}
		for _, acct := range ix.Accounts {
			ci.AccountIndexes = append(ci.AccountIndexes, index[acct.Pubkey])
		}
		msg.Instructions = append(msg.Instructions, ci)
	}

	return msg, nil
}

// Serialize encodes the message in the legacy wire format.
func (m *Message) Serialize() ([]byte, error) {
	blockhash, err := base58.Decode(m.RecentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return nil, fmt.Errorf("blockhash must be 32 bytes, got %d", len(blockhash))
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(m.NumRequiredSignatures))
	buf.WriteByte(byte(m.NumReadonlySignedAccounts))
	buf.WriteByte(byte(m.NumReadonlyUnsignedAccounts))

	buf.Write(appendCompactU16(nil, len(m.AccountKeys)))
	for _, key := range m.AccountKeys {
		buf.Write(key[:])
	}

	buf.Write(blockhash)

	buf.Write(appendCompactU16(nil, len(m.Instructions)))
	for _, ix := range m.Instructions {
		buf.WriteByte(byte(ix.ProgramIDIndex))
		buf.Write(appendCompactU16(nil, len(ix.AccountIndexes)))
		for _, idx := range ix.AccountIndexes {
			buf.WriteByte(byte(idx))
		}
		buf.Write(appendCompactU16(nil, len(ix.Data)))
		buf.Write(ix.Data)
	}

	return buf.Bytes(), nil
}

// SerializeBase64 returns the base64 message for getFeeForMessage.
func (m *Message) SerializeBase64() (string, error) {
	raw, err := m.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// signatureLen is the ed25519 signature size.
const signatureLen = 64

// Transaction pairs a message with its signature slots.
type Transaction struct {
	Message    *Message
	Signatures [][]byte // one slot per required signer, zeroed until signed
}

// NewTransaction wraps a compiled message with empty signature slots.
func NewTransaction(msg *Message) *Transaction {
	sigs := make([][]byte, msg.NumRequiredSignatures)
	for i := range sigs {
		sigs[i] = make([]byte, signatureLen)
	}
	return &Transaction{Message: msg, Signatures: sigs}
}

// signerIndex locates a pubkey within the required-signer keys.
func (t *Transaction) signerIndex(pub solkey.Pubkey) int {
	for i := 0; i < t.Message.NumRequiredSignatures; i++ {
		if t.Message.AccountKeys[i] == pub {
			return i
		}
	}
	return -1
}

// PartialSign fills the signature slot for one keypair. Other slots
// are left untouched, so the user signer and the mint keypair can sign
// in any order.
func (t *Transaction) PartialSign(kp *solkey.Keypair) error {
	idx := t.signerIndex(kp.Pubkey())
	if idx < 0 {
		return fmt.Errorf("keypair %s is not a required signer", kp.Pubkey())
	}
	raw, err := t.Message.Serialize()
	if err != nil {
		return err
	}
	t.Signatures[idx] = kp.Sign(raw)
	return nil
}

// FullySigned reports whether every signature slot is filled.
func (t *Transaction) FullySigned() bool {
	for _, sig := range t.Signatures {
		filled := false
		for _, b := range sig {
			if b != 0 {
				filled = true
				break
			}
		}
		if !filled {
			return false
		}
	}
	return true
}

// Serialize encodes the full transaction (signatures + message).
func (t *Transaction) Serialize() ([]byte, error) {
	raw, err := t.Message.Serialize()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(appendCompactU16(nil, len(t.Signatures)))
	for _, sig := range t.Signatures {
		if len(sig) != signatureLen {
			return nil, fmt.Errorf("signature must be %d bytes, got %d", signatureLen, len(sig))
		}
		buf.Write(sig)
	}
	buf.Write(raw)
	return buf.Bytes(), nil
}

// SerializeBase64 returns the base64 transaction for submission and
// simulation.
func (t *Transaction) SerializeBase64() (string, error) {
	raw, err := t.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Signature returns the base58 primary (fee payer) signature, the
// transaction's on-chain identifier.
func (t *Transaction) Signature() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0])
}
