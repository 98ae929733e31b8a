package identity

import "strings"

// TokenKind says what a decoded barcode/QR token looks like.
type TokenKind string

// Token kinds.
const (
	TokenSerial  TokenKind = "serial"
	TokenIMEI    TokenKind = "imei"
	TokenUnknown TokenKind = "unknown"
)

// SerialPrefix marks tokens printed on GripID device labels.
const SerialPrefix = "GRIPID"

// imeiLength is the digit count of an IMEI (14 digits + Luhn check digit).
const imeiLength = 15

// Token is a classified scanner token.
type Token struct {
	Kind  TokenKind `json:"kind"`
	Value string    `json:"value"`
}

// ClassifyToken cleans a raw scanner token and classifies it.
//
// The value is trimmed and upper-cased. Tokens starting with the GRIPID
// prefix are serials; tokens of exactly fifteen digits are IMEIs.
func ClassifyToken(raw string) Token {
	clean := Normalize(raw)
	switch {
	case clean == "":
		return Token{Kind: TokenUnknown}
	case strings.HasPrefix(clean, SerialPrefix):
		return Token{Kind: TokenSerial, Value: clean}
	case isIMEI(clean):
		return Token{Kind: TokenIMEI, Value: clean}
	default:
		return Token{Kind: TokenUnknown, Value: clean}
	}
}

func isIMEI(s string) bool {
	if len(s) != imeiLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ScanForm holds the identity fields of a registration form being filled
// from successive scans.
type ScanForm struct {
	Serial string `json:"sn_no"`
	IMEI1  string `json:"imei_1"`
	IMEI2  string `json:"imei_2"`
}

// FillScan applies one scanned token to the form and returns the result.
//
// A serial token replaces the serial. An IMEI token fills IMEI1 when it is
// empty, otherwise IMEI2 unless the token repeats IMEI1. Unknown tokens
// leave the form unchanged.
func FillScan(form ScanForm, raw string) (ScanForm, Token) {
	tok := ClassifyToken(raw)
	switch tok.Kind {
	case TokenSerial:
		form.Serial = tok.Value
	case TokenIMEI:
		switch {
		case form.IMEI1 == "":
			form.IMEI1 = tok.Value
		case form.IMEI1 != tok.Value:
			form.IMEI2 = tok.Value
		}
	case TokenUnknown:
	}
	return form, tok
}
