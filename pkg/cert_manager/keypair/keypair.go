// Package keypair pairs an X.509 certificate with its RSA private key and
// implements the signing primitives every CA domain builds on: self-signed
// generation, child certificate issuance and CSR signing.
package keypair

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	gopkix "crypto/x509/pkix"
	"errors"
	"fmt"
	"time"

	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/pkix"
)

// RelativeExpiry is a calendar-aware validity delta. Two years from a given
// day lands on the same month and day two years later, leap days normalized
// by the calendar, never on a fixed duration.
type RelativeExpiry struct {
	Years  int
	Months int
	Days   int
}

// Days is shorthand for an expiry of n days.
func Days(n int) RelativeExpiry {
	return RelativeExpiry{Days: n}
}

// Years is shorthand for an expiry of n years.
func Years(n int) RelativeExpiry {
	return RelativeExpiry{Years: n}
}

// From applies the delta to a point in time.
func (e RelativeExpiry) From(t time.Time) time.Time {
	return t.AddDate(e.Years, e.Months, e.Days)
}

func (e RelativeExpiry) IsZero() bool {
	return e.Years == 0 && e.Months == 0 && e.Days == 0
}

// CertificateWithPrivateKey binds exactly one certificate to exactly one
// private key. The pairing is checked whenever material is loaded from disk.
type CertificateWithPrivateKey struct {
	Certificate model.Certificate
	PrivateKey  *rsa.PrivateKey
}

// GenerateSelfSigned creates a fresh key pair and a certificate whose issuer
// equals its own subject.
func GenerateSelfSigned(commonName string, organization string, expiry RelativeExpiry, keySize int, isCA bool) (*CertificateWithPrivateKey, error) {
	key, err := pkix.CreatePrivateKey(keySize)
	if errors.Is(err, pkix.ErrKeySizeTooSmall) {
		return nil, fmt.Errorf("%s%w", err.Error(), model.ErrUnsupportedKeySize)
	} else if err != nil {
		return nil, err
	}

	template := certTemplate(commonName, organization, pkix.SubjectAltNames{}, expiry, isCA)
	serial, err := pkix.NewSerialNumber()
	if err != nil {
		return nil, err
	}
	template.SerialNumber = serial

	raw, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("fail to CreateCertificate: %w", err)
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, err
	}

	return &CertificateWithPrivateKey{
		Certificate: model.NewCertificate(cert),
		PrivateKey:  key,
	}, nil
}

// IssueNewCertificate generates a new key pair and signs a certificate for it
// with kp's private key. The new certificate's issuer is kp's subject. SANs
// are supplied by the caller; no classification happens here.
func (kp *CertificateWithPrivateKey) IssueNewCertificate(commonName string, organization string, sans pkix.SubjectAltNames, expiry RelativeExpiry, keySize int, isCA bool) (*CertificateWithPrivateKey, error) {
	key, err := pkix.CreatePrivateKey(keySize)
	if errors.Is(err, pkix.ErrKeySizeTooSmall) {
		return nil, fmt.Errorf("%s%w", err.Error(), model.ErrUnsupportedKeySize)
	} else if err != nil {
		return nil, err
	}

	cert, err := kp.sign(commonName, organization, sans, expiry, isCA, &key.PublicKey)
	if err != nil {
		return nil, err
	}

	return &CertificateWithPrivateKey{
		Certificate: cert,
		PrivateKey:  key,
	}, nil
}

// SignCSR issues a certificate for the public key carried by the CSR. The
// CSR's self-signature must check out and its subject must carry a common
// name; both failures surface as ErrInvalidCSR before anything is signed.
func (kp *CertificateWithPrivateKey) SignCSR(csrPEM []byte, expiry RelativeExpiry, sans pkix.SubjectAltNames) (model.Certificate, error) {
	csr, err := pkix.ParseCertificateRequest(csrPEM)
	if err != nil {
		return model.Certificate{}, fmt.Errorf("%s%w", err.Error(), model.ErrInvalidCSR)
	}
	if err := csr.CheckSignature(); err != nil {
		return model.Certificate{}, fmt.Errorf("CSR signature check failed: %s%w", err.Error(), model.ErrInvalidCSR)
	}
	if csr.Subject.CommonName == "" {
		return model.Certificate{}, fmt.Errorf("CSR has no common name%w", model.ErrInvalidCSR)
	}

	return kp.sign(csr.Subject.CommonName, "", sans, expiry, false, csr.PublicKey)
}

// VerifyIsSignedBy checks that kp's certificate carries a valid signature
// from the given CA certificate.
func (kp *CertificateWithPrivateKey) VerifyIsSignedBy(ca model.Certificate) error {
	if err := pkix.VerifySignedBy(kp.Certificate.X509(), ca.X509()); err != nil {
		return fmt.Errorf("%s%w", err.Error(), model.ErrUnverifiedCertificate)
	}
	return nil
}

func (kp *CertificateWithPrivateKey) sign(commonName string, organization string, sans pkix.SubjectAltNames, expiry RelativeExpiry, isCA bool, publicKey any) (model.Certificate, error) {
	template := certTemplate(commonName, organization, sans, expiry, isCA)
	serial, err := pkix.NewSerialNumber()
	if err != nil {
		return model.Certificate{}, err
	}
	template.SerialNumber = serial

	raw, err := x509.CreateCertificate(rand.Reader, template, kp.Certificate.X509(), publicKey, kp.PrivateKey)
	if err != nil {
		return model.Certificate{}, fmt.Errorf("fail to CreateCertificate: %w", err)
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return model.Certificate{}, err
	}
	return model.NewCertificate(cert), nil
}

func certTemplate(commonName string, organization string, sans pkix.SubjectAltNames, expiry RelativeExpiry, isCA bool) *x509.Certificate {
	now := time.Now()
	subject := gopkix.Name{CommonName: commonName}
	if organization != "" {
		subject.Organization = []string{organization}
	}

	template := &x509.Certificate{
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              expiry.From(now),
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		DNSNames:              sans.DNSNames,
		IPAddresses:           sans.IPAddresses,
		URIs:                  sans.URIs,
	}
	if isCA {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	} else {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	}
	return template
}
