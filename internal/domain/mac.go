package domain

import "strings"

// NormalizeMac canonicalizes a MAC address to uppercase colon-separated hex
// octets (AA:BB:CC:DD:EE:FF). Dashes and dots are accepted as input
// separators. Returns ErrInvalidMac when the input is not 6 hex octets.
func NormalizeMac(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.NewReplacer("-", ":", ".", ":").Replace(cleaned)

	var octets []string
	if strings.Contains(cleaned, ":") {
		octets = strings.Split(cleaned, ":")
	} else if len(cleaned) == 12 {
		for i := 0; i < 12; i += 2 {
			octets = append(octets, cleaned[i:i+2])
		}
	}
	if len(octets) != 6 {
		return "", ErrInvalidMac
	}
	for _, octet := range octets {
		if len(octet) != 2 || !isHex(octet[0]) || !isHex(octet[1]) {
			return "", ErrInvalidMac
		}
	}
	return strings.Join(octets, ":"), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
