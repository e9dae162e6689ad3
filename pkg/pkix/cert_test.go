package pkix_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	gopkix "crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/openmon/sitecert/pkg/pkix"
	"github.com/stretchr/testify/suite"
)

type CertTestSuite struct {
	suite.Suite

	caKey    *rsa.PrivateKey
	caCert   *x509.Certificate
	leafKey  *rsa.PrivateKey
	leafCert *x509.Certificate
}

func TestCertTestSuite(t *testing.T) {
	suite.Run(t, new(CertTestSuite))
}

func (s *CertTestSuite) SetupSuite() {
	s.caKey, _ = rsa.GenerateKey(rand.Reader, 2048)
	s.leafKey, _ = rsa.GenerateKey(rand.Reader, 2048)

	caTemplate := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: gopkix.Name{
			Organization: []string{"Site heute"},
			CommonName:   "Site 'heute' local CA",
		},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		IsCA:                  true,
		BasicConstraintsValid: true,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
	}
	caRaw, err := x509.CreateCertificate(rand.Reader, &caTemplate, &caTemplate, &s.caKey.PublicKey, s.caKey)
	s.Require().NoError(err)
	s.caCert, err = x509.ParseCertificate(caRaw)
	s.Require().NoError(err)

	leafTemplate := x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: gopkix.Name{
			Organization: []string{"Site heute"},
			CommonName:   "heute",
		},
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(0, 0, 90),
	}
	leafRaw, err := x509.CreateCertificate(rand.Reader, &leafTemplate, s.caCert, &s.leafKey.PublicKey, s.caKey)
	s.Require().NoError(err)
	s.leafCert, err = x509.ParseCertificate(leafRaw)
	s.Require().NoError(err)
}

func (s *CertTestSuite) TestMarshalParseRoundTrip() {
	pemBytes, err := pkix.MarshalCertificates(s.leafCert, s.caCert)
	s.Require().NoError(err)

	certs, err := pkix.ParseCertificate(pemBytes)
	s.Require().NoError(err)
	s.Require().Len(certs, 2)
	s.Require().Equal(s.leafCert.Raw, certs[0].Raw)
	s.Require().Equal(s.caCert.Raw, certs[1].Raw)
}

func (s *CertTestSuite) TestMarshalCertificatesEmpty() {
	_, err := pkix.MarshalCertificates()
	s.Require().Error(err)
}

func (s *CertTestSuite) TestParseCertificateGarbage() {
	_, err := pkix.ParseCertificate([]byte("not a certificate"))
	s.Require().Error(err)
}

func (s *CertTestSuite) TestVerifySignedBy() {
	s.Require().NoError(pkix.VerifySignedBy(s.leafCert, s.caCert))

	// An unrelated CA must not verify.
	otherKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	otherTemplate := x509.Certificate{
		SerialNumber:          big.NewInt(3),
		Subject:               gopkix.Name{CommonName: "Site 'other' local CA"},
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
	}
	otherRaw, err := x509.CreateCertificate(rand.Reader, &otherTemplate, &otherTemplate, &otherKey.PublicKey, otherKey)
	s.Require().NoError(err)
	otherCert, err := x509.ParseCertificate(otherRaw)
	s.Require().NoError(err)

	s.Require().Error(pkix.VerifySignedBy(s.leafCert, otherCert))
}

func (s *CertTestSuite) TestPrivateKeyRoundTrip() {
	pemBytes, err := pkix.MarshalPrivateKey(s.leafKey)
	s.Require().NoError(err)

	key, err := pkix.ParsePrivateKey(pemBytes)
	s.Require().NoError(err)
	s.Require().True(key.Equal(s.leafKey))
}

func (s *CertTestSuite) TestParsePrivateKeyPKCS1Fallback() {
	pkcs1 := x509.MarshalPKCS1PrivateKey(s.leafKey)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: pkcs1})
	key, err := pkix.ParsePrivateKey(pemBytes)
	s.Require().NoError(err)
	s.Require().True(key.Equal(s.leafKey))
}

func (s *CertTestSuite) TestIsPublicKeyOf() {
	s.Require().True(pkix.IsPublicKeyOf(s.leafKey, s.leafCert.PublicKey))
	s.Require().False(pkix.IsPublicKeyOf(s.caKey, s.leafCert.PublicKey))
}

func (s *CertTestSuite) TestCreatePrivateKey() {
	key, err := pkix.CreatePrivateKey(2048)
	s.Require().NoError(err)
	s.Require().Equal(2048, key.N.BitLen())

	_, err = pkix.CreatePrivateKey(1024)
	s.Require().ErrorIs(err, pkix.ErrKeySizeTooSmall)
}

func (s *CertTestSuite) TestCertificateSigningRequestRoundTrip() {
	csrPEM, err := pkix.CreateCertificateSigningRequest(s.leafKey, []string{"Site heute"}, "heute")
	s.Require().NoError(err)

	csr, err := pkix.ParseCertificateRequest(csrPEM)
	s.Require().NoError(err)
	s.Require().Equal("heute", csr.Subject.CommonName)
	s.Require().NoError(csr.CheckSignature())
}

func (s *CertTestSuite) TestFingerprintSHA1() {
	fp := pkix.FingerprintSHA1(s.leafCert)
	s.Require().Regexp(`^sha1:[0-9a-f]{40}$`, fp)
}
