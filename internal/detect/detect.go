// Package detect implements the detection engine: a
// confidence-weighted ensemble of pattern detectors that classify a single
// field value, combined with column hints, into at most one NPIType per
// row. Detectors are independent, ordered units registered in a table
// that a fixed-size Engine iterates and aggregates.
package detect

// ColumnHint is the closed vocabulary of header-derived hints.
type ColumnHint string

// Recognised column hints.
const (
	HintUserIdentity     ColumnHint = "user_identity"
	HintUserRecordNumber ColumnHint = "user_record_number"
	HintCredential       ColumnHint = "credential"
	HintSecureCredential ColumnHint = "secure_credential"
	HintNone             ColumnHint = "other"
)

// NPIType is the closed tag set of recognised PII/NPI kinds. Unlike an
// open-ended string-carrying enum, OtherFamily/OtherDescription, set only
// on the values built by the four Other* constructors, hold the only
// free-form payload the type system admits.
type NPIType struct {
	tag              string
	OtherFamily      string
	OtherDescription string
}

func (t NPIType) String() string {
	if t.tag == tagOther {
		return t.OtherFamily
	}
	return t.tag
}

// IsOther reports whether t is one of the four "Other*" catch-all families.
func (t NPIType) IsOther() bool { return t.tag == tagOther }

const tagOther = "other"

// Declared NPI tags, in declaration order (used to break ties in
// aggregation).
var (
	AccountNumber                = NPIType{tag: "AccountNumber"}
	BankIBAN                     = NPIType{tag: "BankIBAN"}
	BankRoutingNumber            = NPIType{tag: "BankRoutingNumber"}
	BankSWIFTCode                = NPIType{tag: "BankSWIFTCode"}
	BiometricData                = NPIType{tag: "BiometricData"}
	CreditCardNumber             = NPIType{tag: "CreditCardNumber"}
	CryptoAddress                = NPIType{tag: "CryptoAddress"}
	DateOfBirth                  = NPIType{tag: "DateOfBirth"}
	EmailAddress                 = NPIType{tag: "EmailAddress"}
	PersonalName                 = NPIType{tag: "PersonalName"}
	GenderData                   = NPIType{tag: "GenderData"}
	GPSLocation                  = NPIType{tag: "GPSLocation"}
	IMEI                         = NPIType{tag: "IMEI"}
	MailingAddress               = NPIType{tag: "MailingAddress"}
	NationalIdentificationNumber = NPIType{tag: "NationalIdentificationNumber"}
	PersonalIdentificationNumber = NPIType{tag: "PersonalIdentificationNumber"}
	PhoneNumber                  = NPIType{tag: "PhoneNumber"}
	IPv4                         = NPIType{tag: "IPv4"}
	IPv6                         = NPIType{tag: "IPv6"}
)

// OtherIdentificationNumber builds the OtherIdentificationNumber family tag.
func OtherIdentificationNumber(description string) NPIType {
	return NPIType{tag: tagOther, OtherFamily: "OtherIdentificationNumber", OtherDescription: description}
}

// OtherIdentity builds the OtherIdentity family tag.
func OtherIdentity(description string) NPIType {
	return NPIType{tag: tagOther, OtherFamily: "OtherIdentity", OtherDescription: description}
}

// OtherPersonalData builds the OtherPersonalData family tag.
func OtherPersonalData(description string) NPIType {
	return NPIType{tag: tagOther, OtherFamily: "OtherPersonalData", OtherDescription: description}
}

// OtherRecordNumber builds the OtherRecordNumber family tag.
func OtherRecordNumber(description string) NPIType {
	return NPIType{tag: tagOther, OtherFamily: "OtherRecordNumber", OtherDescription: description}
}

// Detector evaluates one field value (with its column hint) and returns a
// confidence in [0,1]. Detectors are pure and never suspend.
type Detector interface {
	Type() NPIType
	Detect(value string, hint ColumnHint) float64
}

// Engine holds an ordered table of detectors, evaluated in registration
// order so ties at the aggregation step break by declaration order.
type Engine struct {
	detectors []Detector
}

// NewEngine builds an Engine with the standard detector table.
func NewEngine() *Engine {
	return &Engine{detectors: standardDetectors()}
}

// Register appends an additional detector, evaluated after the standard
// table in the order registered.
func (e *Engine) Register(d Detector) {
	e.detectors = append(e.detectors, d)
}

// Classification is the result of running the ensemble over one field.
type Classification struct {
	Type       NPIType
	Confidence float64
	Matched    bool
}

const confidenceThreshold = 0.8

// Classify runs every registered detector over value and returns the
// argmax detector's type if its confidence is >= 0.8, otherwise Matched
// is false. A detector that panics is treated as confidence 0 for that
// type rather than aborting the row (spec: classifier failure degrades,
// never aborts).
func (e *Engine) Classify(value string, hint ColumnHint) Classification {
	var best Classification
	for _, d := range e.detectors {
		c := safeDetect(d, value, hint)
		if c > best.Confidence {
			best = Classification{Type: d.Type(), Confidence: c}
		}
	}
	if best.Confidence >= confidenceThreshold {
		best.Matched = true
	}
	return best
}

func safeDetect(d Detector, value string, hint ColumnHint) (confidence float64) {
	defer func() {
		if recover() != nil {
			confidence = 0
		}
	}()
	return d.Detect(value, hint)
}

// NPIHint returns the closed-vocabulary column hint parameterized by the
// exact NPIType a header is known to carry (the "NPI(t)" hint of §4.6).
// Header text that names a specific tag (e.g. "ssn", "iban") resolves to
// this rather than to the coarser UserIdentity/UserRecordNumber hints.
func NPIHint(t NPIType) ColumnHint {
	return ColumnHint("npi:" + t.String())
}

// MatchesHint reports whether hint is the NPI(t) hint for t specifically.
func (t NPIType) MatchesHint(hint ColumnHint) bool {
	return hint == NPIHint(t)
}

// RainbowLookup reports whether a hash value is present in the rainbow
// table, keeping this package free of a direct dependency on the rainbow
// table's storage backend.
type RainbowLookup interface {
	IsWeak(hash string) (bool, error)
}

// WeakCredential reports whether the canonicalized credential value
// matches any rainbow-table entry under MD5, SHA-256, or NTLM; only exact
// hash-value equality counts.
func WeakCredential(canonicalValue string, md5Hash, sha256Hash, ntlmHash string, lookup RainbowLookup) (bool, error) {
	for _, h := range []string{md5Hash, sha256Hash, ntlmHash} {
		hit, err := lookup.IsWeak(h)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}
