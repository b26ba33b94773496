package generator

import "strings"

// avsPostalCodes maps supported countries to realistic postal codes used for
// address-verification sandbox testing.
var avsPostalCodes = map[string][]string{
	"US": {"10001", "90210", "60601", "94102", "33101"},
	"IT": {"00100", "20100", "80100", "40100", "50100"},
	"GB": {"SW1A 1AA", "M1 1AA", "B1 1AA", "L1 1AA", "CF1 1AA"},
	"CA": {"M5H 2N2", "V6B 1A1", "T2P 1J9", "H2Y 1A6", "K1A 0A6"},
	"AU": {"2000", "3000", "4000", "5000", "6000"},
	"DE": {"10115", "20095", "80331", "50667", "01067"},
	"FR": {"75001", "69001", "13001", "31000", "59000"},
}

// AVSSupported reports whether postal data exists for the country code.
func AVSSupported(countryCode string) bool {
	_, ok := avsPostalCodes[strings.ToUpper(countryCode)]
	return ok
}

// PostalCode picks a postal code for the country, or ("", false) when the
// country has no AVS data.
func (d *Deriver) PostalCode(countryCode string) (string, bool) {
	codes, ok := avsPostalCodes[strings.ToUpper(countryCode)]
	if !ok {
		return "", false
	}
	return codes[d.rng.IntN(len(codes))], true
}
