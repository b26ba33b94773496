package models

import (
	"strings"
	"time"
)

// BinInfo is the issuer metadata associated with a 6-8 digit prefix. The BIN
// dataset is external and read-only from this service's perspective; it only
// drives target length selection and display fields.
type BinInfo struct {
	Bin         string    `json:"bin"`
	Brand       string    `json:"brand"`
	Issuer      string    `json:"issuer,omitempty"`
	Type        string    `json:"type,omitempty"`
	Level       string    `json:"level,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	CountryName string    `json:"country_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// BlockedBin is a deny-list entry for prefixes that must never be used for
// generation (well-known sandbox BINs, abuse reports).
type BlockedBin struct {
	Bin       string    `json:"bin"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedCard is a single checksum-valid synthetic card number with its
// derived credentials.
type GeneratedCard struct {
	Number     string `json:"number"`
	Formatted  string `json:"formatted"`
	ShortCode  string `json:"short_code"`
	Expiry     string `json:"expiry"` // MM/YYYY
	Bin        string `json:"bin"`
	Brand      string `json:"brand,omitempty"`
	Type       string `json:"type,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsPrepaid reports whether the BIN's card type is in the prepaid family,
// which shortens the derived expiry horizon.
func (b *BinInfo) IsPrepaid() bool {
	return b != nil && strings.Contains(strings.ToUpper(b.Type), "PREPAID")
}

// TargetLength returns the brand-specific total card number length. The
// randomLength callback picks between the alternatives for brands with more
// than one valid length; a nil callback selects the first alternative.
func (b *BinInfo) TargetLength(randomLength func(choices ...int) int) int {
	if randomLength == nil {
		randomLength = func(choices ...int) int { return choices[0] }
	}
	var brand string
	if b != nil {
		brand = strings.ToUpper(b.Brand)
	}
	switch {
	case strings.Contains(brand, "AMERICAN EXPRESS") || strings.Contains(brand, "AMEX"):
		return 15
	case strings.Contains(brand, "DINERS"):
		return randomLength(14, 16)
	case strings.Contains(brand, "DISCOVER"):
		return randomLength(16, 19)
	default:
		return 16
	}
}

// FormatCardNumber groups the digits for display: 4-6-5 for 15-digit numbers,
// groups of four otherwise.
func FormatCardNumber(number string) string {
	if len(number) == 15 {
		return number[:4] + " " + number[4:10] + " " + number[10:]
	}
	var groups []string
	for i := 0; i < len(number); i += 4 {
		end := i + 4
		if end > len(number) {
			end = len(number)
		}
		groups = append(groups, number[i:end])
	}
	return strings.Join(groups, " ")
}
