package detect

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

func standardDetectors() []Detector {
	return []Detector{
		accountNumberDetector{},
		bankIBANDetector{},
		bankRoutingNumberDetector{},
		bankSWIFTCodeDetector{},
		biometricDataDetector{},
		creditCardNumberDetector{},
		cryptoAddressDetector{},
		dateOfBirthDetector{},
		emailAddressDetector{},
		personalNameDetector{},
		genderDataDetector{},
		gpsLocationDetector{},
		imeiDetector{},
		mailingAddressDetector{},
		nationalIdentificationNumberDetector{},
		personalIdentificationNumberDetector{},
		phoneNumberDetector{},
		ipv4Detector{},
		ipv6Detector{},
		otherIdentificationNumberDetector{},
		otherIdentityDetector{},
		otherPersonalDataDetector{},
		otherRecordNumberDetector{},
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhnValid(digits string) bool {
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return len(digits) > 0 && sum%10 == 0
}

// --- CreditCardNumber ---

type creditCardNumberDetector struct{}

func (creditCardNumberDetector) Type() NPIType { return CreditCardNumber }

var issuerPrefixes = []string{"4", "51", "52", "53", "54", "55", "34", "37", "6011", "6271"}

func (creditCardNumberDetector) Detect(value string, hint ColumnHint) float64 {
	digits := digitsOnly(value)
	if len(digits) < 13 || len(digits) > 19 {
		return 0
	}
	var score float64
	for _, p := range issuerPrefixes {
		if strings.HasPrefix(digits, p) {
			score += 0.3
			break
		}
	}
	score += 0.2 // issuer-length match, implied by the length bound above
	if luhnValid(digits) {
		score += 0.5
	}
	return score
}

// --- BankIBAN ---

type bankIBANDetector struct{}

func (bankIBANDetector) Type() NPIType { return BankIBAN }

var ibanCountries = map[string]bool{
	"AD": true, "AT": true, "BE": true, "BG": true, "CH": true, "CY": true,
	"CZ": true, "DE": true, "DK": true, "EE": true, "ES": true, "FI": true,
	"FR": true, "GB": true, "GR": true, "HR": true, "HU": true, "IE": true,
	"IS": true, "IT": true, "LI": true, "LT": true, "LU": true, "LV": true,
	"MC": true, "MT": true, "NL": true, "NO": true, "PL": true, "PT": true,
	"RO": true, "SE": true, "SI": true, "SK": true, "SM": true,
}

func (bankIBANDetector) Detect(value string, hint ColumnHint) float64 {
	s := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	if len(s) < 15 || len(s) > 34 {
		return 0
	}
	country := s[:2]
	if !isAlpha(country) {
		return 0
	}
	var score float64
	if ibanCountries[country] {
		score += 0.05
	} else {
		return 0
	}
	if ibanMod97(s) {
		score += 0.95
	}
	return score
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func ibanMod97(s string) bool {
	if len(s) < 4 {
		return false
	}
	rearranged := s[4:] + s[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			digits.WriteString(strconv.Itoa(int(r-'A') + 10))
		default:
			return false
		}
	}
	return mod97(digits.String()) == 1
}

func mod97(digits string) int {
	remainder := 0
	for _, r := range digits {
		remainder = (remainder*10 + int(r-'0')) % 97
	}
	return remainder
}

// --- BankRoutingNumber ---

type bankRoutingNumberDetector struct{}

func (bankRoutingNumberDetector) Type() NPIType { return BankRoutingNumber }

func (bankRoutingNumberDetector) Detect(value string, hint ColumnHint) float64 {
	digits := digitsOnly(value)
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	if len(digits) != 9 {
		return score
	}
	score += 0.2
	if routingMod10(digits) {
		score += 0.3
	}
	return score
}

func routingMod10(digits string) bool {
	weights := []int{3, 7, 1}
	sum := 0
	for i, r := range digits {
		d := int(r - '0')
		sum += d * weights[i%3]
	}
	return sum%10 == 0
}

// --- BankSWIFTCode ---

type bankSWIFTCodeDetector struct{}

func (bankSWIFTCodeDetector) Type() NPIType { return BankSWIFTCode }

var swiftPattern = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

func (bankSWIFTCodeDetector) Detect(value string, hint ColumnHint) float64 {
	s := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	if len(s) != 8 && len(s) != 11 {
		return 0
	}
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	if !swiftPattern.MatchString(s) {
		return score
	}
	score += 0.2
	country := s[4:6]
	if ibanCountries[country] || country == "US" {
		score += 0.3
	}
	return score
}

// --- AccountNumber ---

type accountNumberDetector struct{}

func (accountNumberDetector) Type() NPIType { return AccountNumber }

func (accountNumberDetector) Detect(value string, hint ColumnHint) float64 {
	digits := digitsOnly(strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, value))
	if len(digits) < 8 || len(digits) > 17 {
		return 0
	}
	var score float64
	boosted := hint == HintUserRecordNumber || AccountNumber.MatchesHint(hint)
	if boosted {
		score += 0.5
	}
	score += 0.3
	if score >= confidenceThreshold && !boosted {
		score = confidenceThreshold - 0.01
	}
	return score
}

// --- EmailAddress ---

type emailAddressDetector struct{}

func (emailAddressDetector) Type() NPIType { return EmailAddress }

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (emailAddressDetector) Detect(value string, hint ColumnHint) float64 {
	var score float64
	if hint == HintUserIdentity {
		score += 0.4
	}
	if emailPattern.MatchString(value) {
		score += 0.6
	}
	return score
}

// --- PhoneNumber ---

type phoneNumberDetector struct{}

func (phoneNumberDetector) Type() NPIType { return PhoneNumber }

var (
	e164Pattern  = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	nationalFmt  = regexp.MustCompile(`^\(\d{3}\)\s?\d{3}-\d{4}$`)
	separatedFmt = regexp.MustCompile(`^\d{3}[.\s-]\d{3}[.\s-]\d{4}$`)
)

func (phoneNumberDetector) Detect(value string, hint ColumnHint) float64 {
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	trimmed := strings.TrimSpace(value)
	switch {
	// A leading '+' with a valid E.164 body is unambiguous on its own,
	// independent of any column hint.
	case e164Pattern.MatchString(trimmed):
		score += 0.8
	case nationalFmt.MatchString(trimmed), separatedFmt.MatchString(trimmed):
		score += 0.7
	default:
		digits := digitsOnly(trimmed)
		switch {
		case len(digits) >= 10 && len(digits) <= 15:
			score += 0.7
		case len(digits) == 7:
			score += 0.3
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// --- IPv4 / IPv6 ---

var privateV4 = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"),
}

var privateV6 = []*net.IPNet{
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isPrivate(ip net.IP, ranges []*net.IPNet) bool {
	for _, n := range ranges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

type ipv4Detector struct{}

func (ipv4Detector) Type() NPIType { return IPv4 }

func (ipv4Detector) Detect(value string, hint ColumnHint) float64 {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil || ip.To4() == nil {
		return 0
	}
	if isPrivate(ip, privateV4) {
		return 0
	}
	return 1.0
}

type ipv6Detector struct{}

func (ipv6Detector) Type() NPIType { return IPv6 }

func (ipv6Detector) Detect(value string, hint ColumnHint) float64 {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil || ip.To4() != nil || ip.To16() == nil {
		return 0
	}
	if isPrivate(ip, privateV6) {
		return 0
	}
	return 1.0
}

// --- CryptoAddress ---

type cryptoAddressDetector struct{}

func (cryptoAddressDetector) Type() NPIType { return CryptoAddress }

var (
	btcLegacy = regexp.MustCompile(`^[13][1-9A-HJ-NP-Z]{24,33}$`)
	btcBech32 = regexp.MustCompile(`^bc1[a-z0-9]{39,59}$`)
	ethAddr   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	xrpAddr   = regexp.MustCompile(`^r[A-Za-z0-9]{24,33}$`)
)

func (cryptoAddressDetector) Detect(value string, hint ColumnHint) float64 {
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	switch {
	case btcLegacy.MatchString(value), xrpAddr.MatchString(value):
		score += 0.3
	case btcBech32.MatchString(value), ethAddr.MatchString(value):
		score += 0.5
	default:
		return 0
	}
	return score
}

// --- IMEI ---

type imeiDetector struct{}

func (imeiDetector) Type() NPIType { return IMEI }

func (imeiDetector) Detect(value string, hint ColumnHint) float64 {
	digits := digitsOnly(value)
	if len(digits) != 15 {
		return 0
	}
	var score float64
	if hint != HintNone {
		score += 0.2
	}
	score += 0.2
	if luhnValid(digits) {
		score += 0.6
	}
	return score
}

// --- PersonalIdentificationNumber ---

type personalIdentificationNumberDetector struct{}

func (personalIdentificationNumberDetector) Type() NPIType { return PersonalIdentificationNumber }

func (personalIdentificationNumberDetector) Detect(value string, hint ColumnHint) float64 {
	digits := digitsOnly(value)
	if len(digits) != len(strings.TrimSpace(value)) {
		return 0
	}
	if len(digits) < 4 || len(digits) > 6 {
		return 0
	}
	var score float64
	if hint != HintNone {
		score += 0.4
	}
	score += 0.3 + 0.2
	return score
}

// --- DateOfBirth ---

type dateOfBirthDetector struct{}

func (dateOfBirthDetector) Type() NPIType { return DateOfBirth }

var dobPattern = regexp.MustCompile(`^\d{2,4}[-/.]\d{2,4}[-/.]\d{2,4}$`)

func (dateOfBirthDetector) Detect(value string, hint ColumnHint) float64 {
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	if dobPattern.MatchString(strings.TrimSpace(value)) {
		score += 0.3
	} else {
		return 0
	}
	return score
}

// --- GPSLocation ---

type gpsLocationDetector struct{}

func (gpsLocationDetector) Type() NPIType { return GPSLocation }

var gpsPairPattern = regexp.MustCompile(`^\s*-?\d{1,3}(\.\d+)?\s*,\s*-?\d{1,3}(\.\d+)?\s*$`)
var gpsDMSPattern = regexp.MustCompile(`^\s*\d{1,3}°\s*\d{1,2}'\s*\d{1,2}(\.\d+)?"\s*[NSEW]`)

func (gpsLocationDetector) Detect(value string, hint ColumnHint) float64 {
	var score float64
	if hint != HintNone {
		score += 0.2
	}
	trimmed := strings.TrimSpace(value)
	if gpsDMSPattern.MatchString(trimmed) {
		score += 0.7
		return score
	}
	if !gpsPairPattern.MatchString(trimmed) {
		return 0
	}
	parts := strings.SplitN(trimmed, ",", 2)
	if len(parts) != 2 {
		return 0
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0
	}
	score += 0.7
	return score
}

// --- NationalIdentificationNumber ---

type nationalIdentificationNumberDetector struct{}

func (nationalIdentificationNumberDetector) Type() NPIType { return NationalIdentificationNumber }

var (
	ukNIPattern      = regexp.MustCompile(`^[A-Za-z]{2}\d{6}[A-Za-z]$`)
	esDNIPattern     = regexp.MustCompile(`^\d{8}[A-Za-z]$`)
	deIDPattern      = regexp.MustCompile(`^\d{10}$`)
	frIDPattern      = regexp.MustCompile(`^\d{13,15}$`)
	cnIDPattern      = regexp.MustCompile(`^\d{17}[0-9Xx]$`)
	itCFPattern      = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)
	nlBSNPattern     = regexp.MustCompile(`^\d{9}$`)
	jpMyNumPattern   = regexp.MustCompile(`^\d{12}$`)
	inAadhaarPattern = regexp.MustCompile(`^\d{12}$`)
)

func (nationalIdentificationNumberDetector) Detect(value string, hint ColumnHint) float64 {
	s := strings.TrimSpace(value)
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	switch {
	case ukNIPattern.MatchString(s), esDNIPattern.MatchString(s), deIDPattern.MatchString(s),
		frIDPattern.MatchString(s), cnIDPattern.MatchString(s), itCFPattern.MatchString(s),
		nlBSNPattern.MatchString(s), jpMyNumPattern.MatchString(s), inAadhaarPattern.MatchString(s):
		score += 0.3
	default:
		return 0
	}
	return score
}

// --- MailingAddress ---

type mailingAddressDetector struct{}

func (mailingAddressDetector) Type() NPIType { return MailingAddress }

var addressKeywords = []string{
	"street", "st.", "avenue", "ave", "road", "rd", "boulevard", "blvd",
	"lane", "ln", "drive", "dr", "court", "ct", "place", "pl", "suite",
	"apt", "floor", "zip", "postal", "country", "city", "state",
}

var postalCodePattern = regexp.MustCompile(`\b\d{4,6}(-\d{4})?\b`)

func (mailingAddressDetector) Detect(value string, hint ColumnHint) float64 {
	lower := strings.ToLower(value)
	var score float64
	for _, kw := range addressKeywords {
		if strings.Contains(lower, kw) {
			score += 0.05
		}
	}
	if len(value) > 0 && value[0] >= '0' && value[0] <= '9' {
		score += 0.05
	}
	if len(strings.TrimSpace(value)) >= 10 {
		score += 0.05
	}
	if postalCodePattern.MatchString(value) {
		score += 0.05
	}
	if hint != HintNone {
		score += 0.1
	}
	if score > confidenceThreshold {
		score = confidenceThreshold
	}
	return score
}

// --- PersonalName ---

type personalNameDetector struct{}

func (personalNameDetector) Type() NPIType { return PersonalName }

func (personalNameDetector) Detect(value string, hint ColumnHint) float64 {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 5 {
		return 0
	}
	if strings.ContainsAny(trimmed, "0123456789") {
		return 0
	}
	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return 0
	}
	firstRune := []rune(words[0])[0]
	if firstRune < 'A' || firstRune > 'Z' {
		return 0
	}
	for _, w := range words {
		for _, r := range w {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '\'' || r == '-') {
				return 0
			}
		}
	}
	var score float64
	if hint == HintUserIdentity || PersonalName.MatchesHint(hint) {
		score += 0.5
	}
	score += 0.3
	return score
}

// --- GenderData ---

type genderDataDetector struct{}

func (genderDataDetector) Type() NPIType { return GenderData }

var genderWords = map[string]bool{
	"m": true, "f": true, "x": true, "o": true,
	"male": true, "female": true, "non-binary": true, "nonbinary": true,
	"transgender": true, "genderqueer": true, "other": true,
}

func (genderDataDetector) Detect(value string, hint ColumnHint) float64 {
	lower := strings.ToLower(strings.TrimSpace(value))
	var score float64
	if hint != HintNone {
		score += 0.5
	}
	if genderWords[lower] {
		score += 0.3
	} else {
		return 0
	}
	return score
}

// --- BiometricData ---

type biometricDataDetector struct{}

func (biometricDataDetector) Type() NPIType { return BiometricData }

var biometricKeywords = []string{"fingerprint", "retina", "iris", "voiceprint", "faceprint", "biometric"}

func (biometricDataDetector) Detect(value string, hint ColumnHint) float64 {
	lower := strings.ToLower(value)
	var score float64
	if hint != HintNone {
		score += 0.6
	}
	for _, kw := range biometricKeywords {
		if strings.Contains(lower, kw) {
			score += 0.4
			break
		}
	}
	return score
}

// --- Other* catch-all families ---
//
// These four carry no shape signal of their own (spec: "rely on column
// hints"); unlike every detector above, they only ever fire when the
// header text named their family specifically via the NPI(t) hint, never
// from a bare UserRecordNumber/UserIdentity hint. Their Type() carries an
// empty OtherDescription placeholder; callers that want the header's own
// wording attached to the finding rebuild the tag with
// OtherIdentificationNumber(header) etc. rather than reusing the
// detector's zero-value instance.

type otherIdentificationNumberDetector struct{}

func (otherIdentificationNumberDetector) Type() NPIType { return OtherIdentificationNumber("") }

func (d otherIdentificationNumberDetector) Detect(value string, hint ColumnHint) float64 {
	if !d.Type().MatchesHint(hint) {
		return 0
	}
	digits := digitsOnly(value)
	if len(digits) < 4 {
		return 0
	}
	return 0.9
}

type otherIdentityDetector struct{}

func (otherIdentityDetector) Type() NPIType { return OtherIdentity("") }

func (d otherIdentityDetector) Detect(value string, hint ColumnHint) float64 {
	if !d.Type().MatchesHint(hint) {
		return 0
	}
	if strings.TrimSpace(value) == "" {
		return 0
	}
	return 0.9
}

type otherPersonalDataDetector struct{}

func (otherPersonalDataDetector) Type() NPIType { return OtherPersonalData("") }

func (d otherPersonalDataDetector) Detect(value string, hint ColumnHint) float64 {
	if !d.Type().MatchesHint(hint) {
		return 0
	}
	if strings.TrimSpace(value) == "" {
		return 0
	}
	return 0.9
}

type otherRecordNumberDetector struct{}

func (otherRecordNumberDetector) Type() NPIType { return OtherRecordNumber("") }

func (d otherRecordNumberDetector) Detect(value string, hint ColumnHint) float64 {
	if !d.Type().MatchesHint(hint) {
		return 0
	}
	digits := digitsOnly(value)
	if len(digits) == 0 {
		return 0
	}
	return 0.9
}
