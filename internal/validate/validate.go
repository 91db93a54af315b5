// Package validate holds cheap shape and checksum checks that recognizers
// use to confirm or reject a regex candidate.
package validate

import (
	"encoding/base64"
	"encoding/hex"
	"net/netip"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const base62 = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// LengthBetween returns true if len(s) is within [min,max].
func LengthBetween(s string, min, max int) bool {
	n := len(s)
	return n >= min && n <= max
}

// IsAlphabet returns true if all characters in s are in allowed set.
func IsAlphabet(s, allowed string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(allowed, rune(s[i])) {
			return false
		}
	}
	return true
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// IsBase64URLNoPad reports whether s is valid base64url (no padding) for JWT segments.
func IsBase64URLNoPad(s string) bool {
	if s == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

// IsHex returns true if s is valid hex.
func IsHex(s string) bool {
	if s == "" || len(s)%2 == 1 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Luhn reports whether the digits of s pass the mod-10 checksum.
func Luhn(s string) bool {
	d := Digits(s)
	if len(d) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(d) - 1; i >= 0; i-- {
		n := int(d[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// IBAN verifies the ISO 13616 mod-97 checksum, ignoring spaces and case.
func IBAN(s string) bool {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !LengthBetween(s, 15, 34) {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' || s[1] < 'A' || s[1] > 'Z' {
		return false
	}
	rearranged := s[4:] + s[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// UKNHS verifies the NHS number mod-11 check digit.
func UKNHS(s string) bool {
	d := Digits(s)
	if len(d) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		total += int(d[i]-'0') * (10 - i)
	}
	check := 11 - total%11
	if check == 11 {
		check = 0
	}
	return check != 10 && check == int(d[9]-'0')
}

// InvalidSSN reports whether s cannot be a US social security number:
// area 000, 666 or 9xx, group 00, serial 0000, or all digits equal.
func InvalidSSN(s string) bool {
	d := Digits(s)
	if len(d) != 9 {
		return true
	}
	if strings.Count(d, d[:1]) == len(d) {
		return true
	}
	area, group, serial := d[:3], d[3:5], d[5:]
	return area == "000" || area == "666" || area[0] == '9' || group == "00" || serial == "0000"
}

// EmailDomain reports whether the domain part of an address ends in an
// ICANN-managed public suffix.
func EmailDomain(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 1 || at == len(addr)-1 {
		return false
	}
	return Domain(addr[at+1:])
}

// Domain reports whether host ends in an ICANN-managed public suffix and has
// a registrable label in front of it.
func Domain(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if !strings.Contains(host, ".") {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	return icann && len(host) > len(suffix)+1
}

// IPAddress reports whether s parses as an IPv4 or IPv6 address.
func IPAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// LooksLikeBitcoinAddress checks the base58/bech32 shape of a bitcoin address.
func LooksLikeBitcoinAddress(s string) bool {
	const base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	const bech32 = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	switch {
	case strings.HasPrefix(s, "bc1"):
		return LengthBetween(s, 14, 74) && IsAlphabet(s[3:], bech32)
	case strings.HasPrefix(s, "1") || strings.HasPrefix(s, "3"):
		return LengthBetween(s, 26, 35) && IsAlphabet(s, base58)
	}
	return false
}

// LooksLikeGitHubToken accepts ghp_, gho_, ghu_, ghs_, ghr_ followed by 36 base62 chars.
func LooksLikeGitHubToken(s string) bool {
	if !(strings.HasPrefix(s, "ghp_") || strings.HasPrefix(s, "gho_") || strings.HasPrefix(s, "ghu_") || strings.HasPrefix(s, "ghs_") || strings.HasPrefix(s, "ghr_")) {
		return false
	}
	tail := s[4:]
	return len(tail) == 36 && IsAlphabet(tail, base62)
}

// LooksLikeAWSAccessKey checks for AKIA/ASIA + 16 uppercase alnum.
func LooksLikeAWSAccessKey(s string) bool {
	if !(strings.HasPrefix(s, "AKIA") || strings.HasPrefix(s, "ASIA")) {
		return false
	}
	if len(s) != 20 {
		return false
	}
	const upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	return IsAlphabet(s[4:], upperAlnum)
}

// IsJWTStructure verifies 3 segments base64url-decodable for header and payload.
func IsJWTStructure(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	// signature can be empty or non-decodable; we do not require decoding
	return IsBase64URLNoPad(parts[0]) && IsBase64URLNoPad(parts[1])
}
