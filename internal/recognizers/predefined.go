package recognizers

import (
	"net/url"
	"strings"

	"github.com/redactyl/piiscan/internal/validate"
)

// Predefined returns the built-in catalog in precedence order.
func Predefined(languages ...string) []Recognizer {
	return []Recognizer{
		CreditCard(languages...),
		USSSN(languages...),
		Email(languages...),
		Phone(languages...),
		IPAddress(languages...),
		URL(languages...),
		IBAN(languages...),
		UKNHS(languages...),
		USITIN(languages...),
		Crypto(languages...),
		AWSAccessKey(languages...),
		GitHubToken(languages...),
		JWT(languages...),
		PrivateKey(languages...),
		NewEntropy(languages...),
		NewNER(languages...),
	}
}

func verdict(ok bool) Verdict {
	if ok {
		return Valid
	}
	return Invalid
}

func CreditCard(languages ...string) *PatternRecognizer {
	p := NewPattern("credit_card", "CREDIT_CARD", []Pattern{{
		Name:  "All Credit Cards (weak)",
		Regex: `\b((4\d{3})|(5[0-5]\d{2})|(6\d{3})|(1\d{3})|(3\d{3}))[- ]?(\d{3,4})[- ]?(\d{3,4})[- ]?(\d{3,5})\b`,
		Score: 0.3,
	}}, []string{"credit", "card", "visa", "mastercard", "cc", "amex", "discover", "jcb", "diners", "maestro", "instapayment"}, languages...)
	p.Validate = func(m string) Verdict { return verdict(validate.Luhn(m)) }
	return p
}

func USSSN(languages ...string) *PatternRecognizer {
	p := NewPattern("us_ssn", "US_SSN", []Pattern{
		{Name: "SSN1 (very weak)", Regex: `\b([0-9]{5})-([0-9]{4})\b`, Score: 0.05},
		{Name: "SSN2 (very weak)", Regex: `\b([0-9]{3})-([0-9]{6})\b`, Score: 0.05},
		{Name: "SSN3 (very weak)", Regex: `\b(([0-9]{3})-([0-9]{2})-([0-9]{4}))\b`, Score: 0.05},
		{Name: "SSN4 (very weak)", Regex: `\b[0-9]{9}\b`, Score: 0.05},
		{Name: "SSN5 (medium)", Regex: `\b([0-9]{3})[- .]([0-9]{2})[- .]([0-9]{4})\b`, Score: 0.5},
	}, []string{"social", "security", "ssn", "ssns", "ssid"}, languages...)
	p.Invalidate = func(m string) bool {
		kinds := 0
		for _, d := range []string{"-", ".", " "} {
			if strings.Contains(m, d) {
				kinds++
			}
		}
		return kinds > 1 || validate.InvalidSSN(m)
	}
	return p
}

func Email(languages ...string) *PatternRecognizer {
	p := NewPattern("email", "EMAIL_ADDRESS", []Pattern{{
		Name:  "Email (Medium)",
		Regex: `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}\b`,
		Score: 0.5,
	}}, []string{"email", "mail", "e-mail"}, languages...)
	p.Validate = func(m string) Verdict { return verdict(validate.EmailDomain(m)) }
	return p
}

func Phone(languages ...string) *PatternRecognizer {
	p := NewPattern("phone", "PHONE_NUMBER", []Pattern{
		{Name: "US formatted", Regex: `\(\d{3}\)\s?\d{3}[-.\s]\d{4}\b`, Score: 0.4},
		{Name: "US dashed", Regex: `\b\d{3}[-.]\d{3}[-.]\d{4}\b`, Score: 0.3},
		{Name: "International", Regex: `\+\d{1,3}[\s.-]?\(?\d{1,4}\)?(?:[\s.-]?\d{2,4}){2,4}\b`, Score: 0.4},
	}, []string{"phone", "number", "telephone", "tel", "cell", "cellphone", "mobile", "call", "fax"}, languages...)
	p.Validate = func(m string) Verdict {
		if n := len(validate.Digits(m)); n < 8 || n > 15 {
			return Invalid
		}
		return Unknown
	}
	return p
}

func IPAddress(languages ...string) *PatternRecognizer {
	p := NewPattern("ip_address", "IP_ADDRESS", []Pattern{
		{Name: "IPv4", Regex: `\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`, Score: 0.6},
		{Name: "IPv6", Regex: `\b(?:[0-9A-Fa-f]{1,4}:){2,7}(?::|[0-9A-Fa-f]{1,4})(?::[0-9A-Fa-f]{1,4}){0,5}\b`, Score: 0.6},
	}, []string{"ip", "ipv4", "ipv6", "address"}, languages...)
	p.Invalidate = func(m string) bool { return !validate.IPAddress(m) }
	return p
}

func URL(languages ...string) *PatternRecognizer {
	p := NewPattern("url", "URL", []Pattern{{
		Name:  "Standard Url",
		Regex: `\b(?:https?://|www\.)[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]*[A-Za-z0-9/#=_\-]`,
		Score: 0.6,
	}}, []string{"url", "website", "link", "web"}, languages...)
	p.Invalidate = func(m string) bool {
		raw := m
		if !strings.Contains(strings.ToLower(raw), "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return true
		}
		host := u.Hostname()
		return host == "" || !(validate.Domain(host) || validate.IPAddress(host))
	}
	return p
}

func IBAN(languages ...string) *PatternRecognizer {
	p := NewPattern("iban", "IBAN_CODE", []Pattern{{
		Name:  "IBAN Generic",
		Regex: `\b[A-Z]{2}[0-9]{2}(?:[ ]?[A-Z0-9]{4}){2,7}(?:[ ]?[A-Z0-9]{1,3})?\b`,
		Score: 0.5,
	}}, []string{"iban", "bank", "transaction"}, languages...)
	p.CaseSensitive = true
	p.Validate = func(m string) Verdict { return verdict(validate.IBAN(m)) }
	return p
}

func UKNHS(languages ...string) *PatternRecognizer {
	p := NewPattern("uk_nhs", "UK_NHS", []Pattern{{
		Name:  "NHS (medium)",
		Regex: `\b([0-9]{3})[- ]?([0-9]{3})[- ]?([0-9]{4})\b`,
		Score: 0.5,
	}}, []string{"national health service", "nhs", "health services authority", "health authority"}, languages...)
	p.Validate = func(m string) Verdict { return verdict(validate.UKNHS(m)) }
	return p
}

func USITIN(languages ...string) *PatternRecognizer {
	return NewPattern("us_itin", "US_ITIN", []Pattern{
		{Name: "Itin (weak)", Regex: `\b9\d{2}(5\d|6[0-5]|7\d|8[0-8]|9([0-2]|[4-9]))\d{4}\b`, Score: 0.3},
		{Name: "Itin (medium)", Regex: `\b9\d{2}[- ](5\d|6[0-5]|7\d|8[0-8]|9([0-2]|[4-9]))[- ]\d{4}\b`, Score: 0.5},
	}, []string{"individual", "taxpayer", "itin", "tax", "payer", "taxid", "tin"}, languages...)
}

func Crypto(languages ...string) *PatternRecognizer {
	p := NewPattern("crypto", "CRYPTO", []Pattern{{
		Name:  "Crypto (Medium)",
		Regex: `\b(?:bc1|[13])[a-zA-HJ-NP-Z0-9]{25,59}\b`,
		Score: 0.5,
	}}, []string{"wallet", "btc", "bitcoin", "crypto"}, languages...)
	p.CaseSensitive = true
	p.Invalidate = func(m string) bool { return !validate.LooksLikeBitcoinAddress(m) }
	return p
}

func AWSAccessKey(languages ...string) *PatternRecognizer {
	p := NewPattern("aws_access_key", "AWS_ACCESS_KEY", []Pattern{{
		Name: "AWS access key id", Regex: `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, Score: 0.6,
	}}, []string{"aws", "access", "key"}, languages...)
	p.CaseSensitive = true
	p.Invalidate = func(m string) bool { return !validate.LooksLikeAWSAccessKey(m) }
	return p
}

func GitHubToken(languages ...string) *PatternRecognizer {
	p := NewPattern("github_token", "GITHUB_TOKEN", []Pattern{{
		Name: "GitHub token", Regex: `\bgh[pousr]_[A-Za-z0-9]{36}\b`, Score: 0.9,
	}}, []string{"github", "token"}, languages...)
	p.CaseSensitive = true
	p.Invalidate = func(m string) bool { return !validate.LooksLikeGitHubToken(m) }
	return p
}

func JWT(languages ...string) *PatternRecognizer {
	p := NewPattern("jwt", "JWT", []Pattern{{
		Name: "JWT", Regex: `\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`, Score: 0.7,
	}}, []string{"jwt", "token", "bearer", "authorization"}, languages...)
	p.CaseSensitive = true
	p.Invalidate = func(m string) bool { return !validate.IsJWTStructure(m) }
	return p
}

func PrivateKey(languages ...string) *PatternRecognizer {
	p := NewPattern("private_key", "PRIVATE_KEY", []Pattern{
		{Name: "PEM block", Regex: `(?s)-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----.*?-----END [A-Z0-9 ]*PRIVATE KEY-----`, Score: 0.99},
		{Name: "PEM header", Regex: `-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----`, Score: 0.9},
	}, nil, languages...)
	p.CaseSensitive = true
	return p
}
