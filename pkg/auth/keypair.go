package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/youmark/pkcs8"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

// ParsePrivateKey decodes a PEM RSA private key in PKCS#1, PKCS#8 or
// encrypted PKCS#8 form. Literal "\n" sequences, as produced by single-line
// secret stores, are treated as line breaks.
func ParsePrivateKey(pemText, passphrase string) (*rsa.PrivateKey, error) {
	pemText = strings.TrimSpace(strings.ReplaceAll(pemText, `\n`, "\n"))

	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New(errors.ErrorTypeAuthentication, "invalid private key: no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "could not parse PKCS#1 private key")
		}
		return key, nil

	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, errors.New(errors.ErrorTypeAuthentication, "private key is encrypted but no passphrase was given")
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "could not decrypt private key")
		}
		return key, nil

	case "PRIVATE KEY":
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "could not parse PKCS#8 private key")
		}
		return key, nil

	default:
		return nil, errors.Newf(errors.ErrorTypeAuthentication, "unsupported PEM block type %q", block.Type)
	}
}
