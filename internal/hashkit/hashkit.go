// Package hashkit implements the Hash Kit: stateless hash
// functions over byte streams plus a credential-fingerprint identifier.
package hashkit

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"regexp"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// chunkSize is the fixed read size used while streaming a hash.
const chunkSize = 4 * 1024

// Algorithm identifies a supported digest algorithm.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmMD4    Algorithm = "md4"
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmNTLM   Algorithm = "ntlm"
)

func newHasher(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case AlgorithmMD4:
		return md4.New(), nil
	case AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmSHA1:
		return sha1.New(), nil
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	default:
		return nil, errUnsupportedAlgorithm(alg)
	}
}

type errUnsupportedAlgorithm Algorithm

func (e errUnsupportedAlgorithm) Error() string {
	return "hashkit: unsupported algorithm " + string(e)
}

// Stream hashes r with alg, reading in fixed 4 KiB chunks, and returns the
// lowercase hex digest. NTLM reads the whole input first, since it hashes
// the UTF-16LE encoding of the text.
func Stream(alg Algorithm, r io.Reader) (string, error) {
	if alg == AlgorithmNTLM {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return NTLM(string(data)), nil
	}
	h, err := newHasher(alg)
	if err != nil {
		return "", err
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes hashes data directly with alg.
func Bytes(alg Algorithm, data []byte) string {
	digest, _ := Stream(alg, strings.NewReader(string(data)))
	return digest
}

// String hashes s directly with alg.
func String(alg Algorithm, s string) string {
	return Bytes(alg, []byte(s))
}

// NTLM computes the NTLM hash of password: MD4 over the UTF-16LE encoding
// of the input.
func NTLM(password string) string {
	utf16le := encodeUTF16LE(password)
	h := md4.New()
	h.Write(utf16le)
	return hex.EncodeToString(h.Sum(nil))
}

func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

// Fingerprint is the result of identifying a credential value's hashing
// scheme.
type Fingerprint struct {
	Algorithm   string
	IsWeak      bool
	Description string
}

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Identify inspects s and reports its probable hashing scheme from
// prefix/length heuristics. The `$7$` scrypt prefix collides textually
// with the legacy crypt(3) NetBSD ext_des identifier; `$7$` is always
// read as scrypt here.
func Identify(s string) Fingerprint {
	switch {
	case strings.HasPrefix(s, "$2a$"), strings.HasPrefix(s, "$2b$"), strings.HasPrefix(s, "$2y$"):
		return Fingerprint{Algorithm: "bcrypt", IsWeak: false, Description: "bcrypt"}
	case strings.HasPrefix(s, "$7$"):
		return Fingerprint{Algorithm: "scrypt", IsWeak: false, Description: "scrypt"}
	case strings.HasPrefix(s, "$argon2i$"), strings.HasPrefix(s, "$argon2d$"), strings.HasPrefix(s, "$argon2id$"):
		return Fingerprint{Algorithm: "argon2", IsWeak: false, Description: "argon2"}
	case strings.HasPrefix(s, "$pbkdf2-sha256$"), strings.HasPrefix(s, "$pbkdf2-sha512$"):
		return Fingerprint{Algorithm: "pbkdf2", IsWeak: false, Description: "PBKDF2"}
	}

	if hexPattern.MatchString(s) {
		switch len(s) {
		case 32:
			return Fingerprint{Algorithm: "md5", IsWeak: true, Description: "MD5 (32 hex chars)"}
		case 40:
			return Fingerprint{Algorithm: "sha1", IsWeak: true, Description: "SHA-1 (40 hex chars)"}
		case 64:
			return Fingerprint{Algorithm: "sha256", IsWeak: true, Description: "SHA-256 (64 hex chars)"}
		case 128:
			return Fingerprint{Algorithm: "sha512", IsWeak: true, Description: "SHA-512 (128 hex chars)"}
		}
	}

	return Fingerprint{Algorithm: "unknown", IsWeak: false, Description: "unrecognized fingerprint"}
}
