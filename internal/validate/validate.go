// Package validate holds the pure, network-free field validators for
// token creation requests. Every validator returns an independent
// result so callers can collect and display all problems at once.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"solana-token-forge/internal/domain"
)

// Result is the outcome of a single field validation.
type Result struct {
	IsValid bool
	Error   string
}

func ok() Result {
	return Result{IsValid: true}
}

func fail(format string, args ...interface{}) Result {
	return Result{IsValid: false, Error: fmt.Sprintf(format, args...)}
}

var (
	symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

	// Patterns resembling markup or URI-scheme injection in names.
	injectionPatterns = []string{
		"<script", "</", "<iframe", "<img", "javascript:", "data:",
		"vbscript:", "onerror=", "onload=",
	}
)

// AllowedImageTypes is the raster image MIME allow-list.
var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Name validates the token display name.
func Name(name string) Result {
	if strings.TrimSpace(name) == "" {
		return fail("name must not be empty")
	}
	if len(name) > domain.MaxNameLength {
		return fail("name must be at most %d characters", domain.MaxNameLength)
	}
	lower := strings.ToLower(name)
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			return fail("name contains disallowed characters")
		}
	}
	return ok()
}

// Symbol validates the ticker symbol. Symbols are alphanumeric and
// case-normalized to upper case by NormalizeSymbol before use.
func Symbol(symbol string) Result {
	if symbol == "" {
		return fail("symbol must not be empty")
	}
	if len(symbol) > domain.MaxSymbolLength {
		return fail("symbol must be at most %d characters", domain.MaxSymbolLength)
	}
	if !symbolPattern.MatchString(symbol) {
		return fail("symbol must contain only letters and digits")
	}
	return ok()
}

// NormalizeSymbol upper-cases a symbol for on-chain use.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(symbol)
}

// Supply validates the whole-token supply.
func Supply(supply uint64) Result {
	if supply < 1 {
		return fail("supply must be at least 1")
	}
	if supply > domain.MaxSupply {
		return fail("supply must be at most %d", uint64(domain.MaxSupply))
	}
	return ok()
}

// Decimals validates the decimal precision.
func Decimals(decimals int) Result {
	if decimals < 0 || decimals > domain.MaxDecimals {
		return fail("decimals must be between 0 and %d", domain.MaxDecimals)
	}
	return ok()
}

// Description validates the optional description text.
func Description(description string) Result {
	if len(description) > domain.MaxDescriptionLength {
		return fail("description must be at most %d characters", domain.MaxDescriptionLength)
	}
	return ok()
}

// Image validates the optional logo blob. An absent image is valid.
func Image(data []byte, mimeType string) Result {
	if len(data) == 0 {
		return ok()
	}
	if len(data) > domain.MaxImageBytes {
		return fail("image must be at most %d bytes", domain.MaxImageBytes)
	}
	if !AllowedImageTypes[mimeType] {
		return fail("image type %q is not allowed", mimeType)
	}
	return ok()
}

// Params runs every validator over a full request and returns the
// collected error messages. Validations do not short-circuit.
func Params(p *domain.TokenParams) []string {
	var errs []string
	for _, r := range []Result{
		Name(p.Name),
		Symbol(p.Symbol),
		Supply(p.Supply),
		Decimals(p.Decimals),
		Description(p.Description),
		Image(p.Image, p.ImageType),
	} {
		if !r.IsValid {
			errs = append(errs, r.Error)
		}
	}
	return errs
}
