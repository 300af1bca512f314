package txn

import (
	"encoding/binary"

	"solana-token-forge/internal/solkey"
)

// MintAccountSize is the serialized size of SPL mint state.
const MintAccountSize = 82

// System program instruction discriminators (little-endian uint32).
const (
	sysInstructionCreateAccount = 0
	sysInstructionTransfer      = 2
)

// Token program instruction discriminators (single byte).
const (
	tokenInstructionSetAuthority    = 6
	tokenInstructionMintTo          = 7
	tokenInstructionInitializeMint2 = 20
)

// Associated token program instruction discriminators.
const ataInstructionCreateIdempotent = 1

// Metadata program instruction discriminators.
const metaInstructionCreateV3 = 33

// Authority kinds for SetAuthority.
type AuthorityType uint8

const (
	AuthorityMintTokens    AuthorityType = 0
	AuthorityFreezeAccount AuthorityType = 1
)

// NewCreateAccount allocates and funds a fresh account owned by the
// given program. The new account co-signs to prove address ownership.
func NewCreateAccount(from, newAccount solkey.Pubkey, lamports, space uint64, owner solkey.Pubkey) Instruction {
	data := make([]byte, 4+8+8+32)
	binary.LittleEndian.PutUint32(data[0:4], sysInstructionCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner[:])

	return Instruction{
		ProgramID: solkey.SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

// NewTransfer moves lamports between system accounts. Used only to
// build the representative message for fee estimation.
func NewTransfer(from, to solkey.Pubkey, lamports uint64) Instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], sysInstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: solkey.SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: data,
	}
}

// NewInitializeMint2 initializes a freshly created account as a mint
// with the given decimal precision and authorities.
func NewInitializeMint2(mint solkey.Pubkey, decimals uint8, mintAuthority, freezeAuthority solkey.Pubkey) Instruction {
	data := make([]byte, 0, 1+1+32+1+32)
	data = append(data, tokenInstructionInitializeMint2, decimals)
	data = append(data, mintAuthority[:]...)
	if freezeAuthority.IsZero() {
		data = append(data, 0)
	} else {
		data = append(data, 1)
		data = append(data, freezeAuthority[:]...)
	}

	return Instruction{
		ProgramID: solkey.TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
		},
		Data: data,
	}
}

// NewCreateAssociatedAccountIdempotent creates the owner's associated
// token account for a mint. A no-op when the account already exists
// with the right owner; fails when the address is taken by something
// else.
func NewCreateAssociatedAccountIdempotent(payer, associatedAccount, owner, mint solkey.Pubkey) Instruction {
	return Instruction{
		ProgramID: solkey.AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: associatedAccount, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: solkey.SystemProgramID},
			{Pubkey: solkey.TokenProgramID},
		},
		Data: []byte{ataInstructionCreateIdempotent},
	}
}

// NewMintTo issues raw token units into a destination account.
func NewMintTo(mint, destination, authority solkey.Pubkey, amount uint64) Instruction {
	data := make([]byte, 1+8)
	data[0] = tokenInstructionMintTo
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: solkey.TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data: data,
	}
}

// NewRevokeAuthority permanently sets a mint authority to none.
func NewRevokeAuthority(mint solkey.Pubkey, authorityType AuthorityType, currentAuthority solkey.Pubkey) Instruction {
	// SetAuthority with new-authority option = None.
	data := []byte{tokenInstructionSetAuthority, byte(authorityType), 0}

	return Instruction{
		ProgramID: solkey.TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: currentAuthority, IsSigner: true},
		},
		Data: data,
	}
}

// appendBorshString appends a u32-length-prefixed string.
func appendBorshString(buf []byte, s string) []byte {
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(s)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, s...)
}

// NewCreateMetadataV3 links a name, symbol and descriptor URI to a
// mint. isMutable false permanently revokes the update authority.
func NewCreateMetadataV3(metadataAccount, mint, mintAuthority, payer, updateAuthority solkey.Pubkey, name, symbol, uri string, isMutable bool) Instruction {
	data := []byte{metaInstructionCreateV3}
	data = appendBorshString(data, name)
	data = appendBorshString(data, symbol)
	data = appendBorshString(data, uri)
	data = append(data, 0, 0) // sellerFeeBasisPoints u16 = 0
	data = append(data, 0)    // creators: None
	data = append(data, 0)    // collection: None
	data = append(data, 0)    // uses: None
	if isMutable {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	data = append(data, 0) // collectionDetails: None

	return Instruction{
		ProgramID: solkey.MetadataProgramID,
		Accounts: []AccountMeta{
			{Pubkey: metadataAccount, IsWritable: true},
			{Pubkey: mint},
			{Pubkey: mintAuthority, IsSigner: true},
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: updateAuthority, IsSigner: true},
			{Pubkey: solkey.SystemProgramID},
			{Pubkey: solkey.SysvarRentID},
		},
		Data: data,
	}
}
