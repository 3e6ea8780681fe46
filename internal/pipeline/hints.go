package pipeline

import (
	"strings"

	"github.com/corpusvault/corpusvault/internal/detect"
)

// headerKeywords maps header-text substrings to the closed ColumnHint
// vocabulary. Matching is case-insensitive and checks substrings rather
// than exact equality, since source headers vary widely
// ("email", "e-mail", "user_email", "Email Address" all mean the same
// thing). Entries are checked in order; the first match wins.
var headerKeywords = []struct {
	keyword string
	hint    detect.ColumnHint
}{
	// Headers naming a specific closed NPI tag resolve to the "NPI(t)"
	// hint (spec §4.6) rather than the coarser hints below, so the
	// matching detector gets its column-hint weight. Detectors that add
	// weight for any non-empty hint count it as well.
	// Checked first so a substring like "pass" inside "passport" never
	// shadows the more specific match.
	{"ssn", detect.NPIHint(detect.NationalIdentificationNumber)},
	{"national_id", detect.NPIHint(detect.NationalIdentificationNumber)},
	{"passport", detect.NPIHint(detect.NationalIdentificationNumber)},
	{"iban", detect.NPIHint(detect.BankIBAN)},
	{"swift", detect.NPIHint(detect.BankSWIFTCode)},
	{"bic", detect.NPIHint(detect.BankSWIFTCode)},
	{"routing_number", detect.NPIHint(detect.BankRoutingNumber)},
	{"routing_num", detect.NPIHint(detect.BankRoutingNumber)},
	{"aba_number", detect.NPIHint(detect.BankRoutingNumber)},
	{"account_number", detect.NPIHint(detect.AccountNumber)},
	{"acct_number", detect.NPIHint(detect.AccountNumber)},
	{"credit_card", detect.NPIHint(detect.CreditCardNumber)},
	{"card_number", detect.NPIHint(detect.CreditCardNumber)},
	{"wallet_address", detect.NPIHint(detect.CryptoAddress)},
	{"crypto_address", detect.NPIHint(detect.CryptoAddress)},
	{"imei", detect.NPIHint(detect.IMEI)},
	{"date_of_birth", detect.NPIHint(detect.DateOfBirth)},
	{"birth_date", detect.NPIHint(detect.DateOfBirth)},
	{"dob", detect.NPIHint(detect.DateOfBirth)},
	{"latitude", detect.NPIHint(detect.GPSLocation)},
	{"longitude", detect.NPIHint(detect.GPSLocation)},
	{"gps", detect.NPIHint(detect.GPSLocation)},
	{"phone", detect.NPIHint(detect.PhoneNumber)},
	{"mobile", detect.NPIHint(detect.PhoneNumber)},
	{"telephone", detect.NPIHint(detect.PhoneNumber)},
	{"full_name", detect.NPIHint(detect.PersonalName)},
	{"first_name", detect.NPIHint(detect.PersonalName)},
	{"last_name", detect.NPIHint(detect.PersonalName)},
	{"gender", detect.NPIHint(detect.GenderData)},
	{"sex", detect.NPIHint(detect.GenderData)},
	{"mailing_address", detect.NPIHint(detect.MailingAddress)},
	{"street_address", detect.NPIHint(detect.MailingAddress)},
	{"biometric", detect.NPIHint(detect.BiometricData)},
	{"fingerprint", detect.NPIHint(detect.BiometricData)},
	{"pin_code", detect.NPIHint(detect.PersonalIdentificationNumber)},

	// Headers that name a kind of sensitive data outside the 19 fixed
	// tags fall into one of the four Other* catch-all families.
	{"badge_number", detect.NPIHint(detect.OtherIdentificationNumber(""))},
	{"employee_id", detect.NPIHint(detect.OtherIdentificationNumber(""))},
	{"student_id", detect.NPIHint(detect.OtherIdentificationNumber(""))},
	{"nickname", detect.NPIHint(detect.OtherIdentity(""))},
	{"handle", detect.NPIHint(detect.OtherIdentity(""))},
	{"screen_name", detect.NPIHint(detect.OtherIdentity(""))},
	{"notes", detect.NPIHint(detect.OtherPersonalData(""))},
	{"comments", detect.NPIHint(detect.OtherPersonalData(""))},
	{"bio", detect.NPIHint(detect.OtherPersonalData(""))},
	{"reference_number", detect.NPIHint(detect.OtherRecordNumber(""))},
	{"ticket_number", detect.NPIHint(detect.OtherRecordNumber(""))},
	{"case_number", detect.NPIHint(detect.OtherRecordNumber(""))},

	{"password_hash", detect.HintSecureCredential},
	{"passwd_hash", detect.HintSecureCredential},
	{"hashed_password", detect.HintSecureCredential},
	{"pwd_hash", detect.HintSecureCredential},
	{"password", detect.HintCredential},
	{"passwd", detect.HintCredential},
	{"pwd", detect.HintCredential},
	{"pass", detect.HintCredential},
	{"secret", detect.HintCredential},
	{"user_id", detect.HintUserRecordNumber},
	{"userid", detect.HintUserRecordNumber},
	{"record_id", detect.HintUserRecordNumber},
	{"recordid", detect.HintUserRecordNumber},
	{"account_id", detect.HintUserRecordNumber},
	{"member_id", detect.HintUserRecordNumber},
	{"email", detect.HintUserIdentity},
	{"e-mail", detect.HintUserIdentity},
	{"username", detect.HintUserIdentity},
	{"user_name", detect.HintUserIdentity},
	{"login", detect.HintUserIdentity},
}

// HintForHeader derives the closed-vocabulary ColumnHint from a header's
// text via a fixed mapping table. Unrecognised headers get HintNone,
// leaving detection to the shape-driven detectors alone.
func HintForHeader(header string) detect.ColumnHint {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, entry := range headerKeywords {
		if strings.Contains(h, entry.keyword) {
			return entry.hint
		}
	}
	return detect.HintNone
}
