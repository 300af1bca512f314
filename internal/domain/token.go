package domain

// Field constraints for token creation requests.
const (
	MaxNameLength        = 50
	MaxSymbolLength      = 10
	MaxDescriptionLength = 500
	MaxDecimals          = 18
	MaxSupply            = 1_000_000_000_000 // 10^12 whole tokens
	MaxImageBytes        = 2 * 1024 * 1024
)

// TokenParams describes a token creation request. Immutable once
// submitted to the pipeline.
type TokenParams struct {
	Name        string
	Symbol      string // normalized to upper case by validation
	Decimals    int
	Supply      uint64 // whole tokens, scaled by 10^Decimals at mint time
	Description string

	// Image is the optional raster logo. ImageType is its MIME type.
	Image     []byte
	ImageName string
	ImageType string

	// Authority revocations. Irreversible once the corresponding
	// instruction confirms on-chain.
	RevokeMintAuthority   bool
	RevokeFreezeAuthority bool
	RevokeUpdateAuthority bool
}

// HasImage reports whether an image was supplied with the request.
func (p *TokenParams) HasImage() bool {
	return len(p.Image) > 0
}

// MintRecord is the produced artifact of a successful creation run.
// Corresponds to the mint_records table in PostgreSQL.
type MintRecord struct {
	Mint                 string // mint account address (base58)
	TokenAccount         string // creator's associated token account
	Creator              string // signer address
	Network              Network
	Name                 string
	Symbol               string
	Decimals             int
	Supply               uint64
	TransactionSignature string // group 2 (issuance) signature
	ExplorerURL          string
	MetadataURI          *string // nil until the metadata stage lands
	MintAuthorityRevoked bool
	FreezeAuthRevoked    bool
	CreatedAt            int64 // ms
}
