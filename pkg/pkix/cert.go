// Package pkix holds the low-level key and certificate plumbing shared by the
// certificate managers: PEM (un)marshalling, CSR handling, signature
// verification and subject-alternative-name classification.
package pkix

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	gopkix "crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// ParseCertificate parses one or more concatenated PEM certificate blocks.
func ParseCertificate(certRaw []byte) ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, 4)
	for {
		pemBlock, remains := pem.Decode(certRaw)
		if pemBlock == nil {
			return nil, errors.New("invalid certificate")
		}

		cert, err := x509.ParseCertificate(pemBlock.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)

		if len(remains) == 0 {
			break
		}
		certRaw = remains
	}

	return certs, nil
}

// MarshalCertificates encodes the given certificates as concatenated PEM blocks.
func MarshalCertificates(certs ...*x509.Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificate provided")
	}
	buf := make([]byte, 0, 4096)
	for _, cert := range certs {
		buf = append(buf, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return buf, nil
}

// ParseCertificateRequest parses a PEM encoded CSR.
func ParseCertificateRequest(certRequest []byte) (*x509.CertificateRequest, error) {
	pemBlock, _ := pem.Decode(certRequest)
	if pemBlock == nil {
		return nil, errors.New("invalid certificate request")
	}

	return x509.ParseCertificateRequest(pemBlock.Bytes)
}

// CreateCertificateSigningRequest builds a PEM encoded CSR signed with key.
func CreateCertificateSigningRequest(key *rsa.PrivateKey, organization []string, commonName string) ([]byte, error) {
	template := x509.CertificateRequest{
		Subject: gopkix.Name{
			Organization: organization,
			CommonName:   commonName,
		},
	}

	raw, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: raw}), nil
}

// VerifySignedBy checks that leaf carries a valid signature from issuer.
// It is a single-step check, not a chain walk: the certificate managers only
// ever deal in depth-one hierarchies (root CA -> leaf).
func VerifySignedBy(leaf *x509.Certificate, issuer *x509.Certificate) error {
	if err := leaf.CheckSignatureFrom(issuer); err != nil {
		return fmt.Errorf("certificate %q not signed by %q: %w", leaf.Subject.CommonName, issuer.Subject.CommonName, err)
	}
	return nil
}

// FingerprintSHA1 returns the certificate fingerprint in the
// "sha1:<hex>" format used throughout audit records.
func FingerprintSHA1(cert *x509.Certificate) string {
	return fmt.Sprintf("sha1:%x", sha1.Sum(cert.Raw))
}

// NewSerialNumber draws a random 128 bit certificate serial.
func NewSerialNumber() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}
