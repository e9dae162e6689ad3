// Package model holds the value objects shared by the certificate managers:
// the certificate wrapper, the error taxonomy and the audit event records.
package model

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/openmon/sitecert/pkg/pkix"
)

// Certificate wraps a parsed X.509 certificate. It is an immutable value;
// all mutation in this subsystem happens by issuing a new certificate.
type Certificate struct {
	x509Cert *x509.Certificate
}

func NewCertificate(cert *x509.Certificate) Certificate {
	return Certificate{x509Cert: cert}
}

// ParseCertificatePEM parses the first certificate of a PEM bundle.
func ParseCertificatePEM(raw []byte) (Certificate, error) {
	certs, err := pkix.ParseCertificate(raw)
	if err != nil {
		return Certificate{}, fmt.Errorf("%s%w", err.Error(), ErrMalformedPEM)
	}
	return Certificate{x509Cert: certs[0]}, nil
}

func (c Certificate) X509() *x509.Certificate { return c.x509Cert }

func (c Certificate) SubjectCN() string { return c.x509Cert.Subject.CommonName }

func (c Certificate) SubjectOrganization() []string { return c.x509Cert.Subject.Organization }

func (c Certificate) IssuerCN() string { return c.x509Cert.Issuer.CommonName }

func (c Certificate) NotBefore() time.Time { return c.x509Cert.NotBefore }

func (c Certificate) NotAfter() time.Time { return c.x509Cert.NotAfter }

func (c Certificate) SerialNumber() string { return c.x509Cert.SerialNumber.String() }

func (c Certificate) IsCA() bool { return c.x509Cert.IsCA }

func (c Certificate) Fingerprint() string { return pkix.FingerprintSHA1(c.x509Cert) }

// PEM returns the certificate as a single PEM block.
func (c Certificate) PEM() ([]byte, error) {
	return pkix.MarshalCertificates(c.x509Cert)
}

// CheckValidity reports an error when now is outside the certificate's
// validity window. Consumers check this explicitly, it is never implied.
func (c Certificate) CheckValidity(now time.Time) error {
	if now.Before(c.x509Cert.NotBefore) {
		return fmt.Errorf("certificate %q not valid before %s%w", c.SubjectCN(), c.x509Cert.NotBefore, ErrInvalidParameter)
	}
	if now.After(c.x509Cert.NotAfter) {
		return fmt.Errorf("certificate %q expired at %s%w", c.SubjectCN(), c.x509Cert.NotAfter, ErrInvalidParameter)
	}
	return nil
}
