// Package brokercert manages the message broker's leaf certificate: local
// creation signed by the broker CA, persistence in the split cert/key layout
// the broker consumes, and acceptance of certificates issued by a remote
// party after verification against the accompanying CA.
package brokercert

import (
	"fmt"
	"path/filepath"

	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/pkix"
)

// DefaultExpiry applies when a broker leaf certificate is created without an
// explicit expiry.
var DefaultExpiry = keypair.Years(2)

// LocalBrokerCertificate is the broker leaf certificate of this site.
type LocalBrokerCertificate struct {
	root string
}

func NewLocalBrokerCertificate(root string) *LocalBrokerCertificate {
	return &LocalBrokerCertificate{root: root}
}

func (l *LocalBrokerCertificate) CertPath() string {
	return filepath.Join(l.root, "etc", "rabbitmq", "ssl", "cert.pem")
}

func (l *LocalBrokerCertificate) KeyPath() string {
	return filepath.Join(l.root, "etc", "rabbitmq", "ssl", "key.pem")
}

// Paths lists the files the broker leaf certificate occupies.
func (l *LocalBrokerCertificate) Paths() []string {
	return []string{l.CertPath(), l.KeyPath()}
}

// CreateBundle issues a broker certificate for identity, signed by the given
// CA. It never touches disk, which lets a central site build certificates on
// behalf of remote sites.
func CreateBundle(identity string, issuerCA *authority.Authority, expiry keypair.RelativeExpiry, keySize int) (*keypair.CertificateWithPrivateKey, error) {
	if expiry.IsZero() {
		expiry = DefaultExpiry
	}
	sans := pkix.SubjectAltNames{DNSNames: []string{identity}}
	return issuerCA.KeyPair.IssueNewCertificate(identity, issuerCA.Domain.Organization(issuerCA.Identity), sans, expiry, keySize, false)
}

// Persist writes the bundle into the broker's cert/key files.
func (l *LocalBrokerCertificate) Persist(bundle *keypair.CertificateWithPrivateKey) error {
	return keypair.SaveSplit(l.CertPath(), l.KeyPath(), bundle)
}

// Load reads the broker leaf certificate back.
func (l *LocalBrokerCertificate) Load() (*keypair.CertificateWithPrivateKey, error) {
	return keypair.LoadSplit(l.CertPath(), l.KeyPath())
}

// PersistBrokerCertificates accepts a certificate issued for this site by a
// remote party. The certificate must verify against the accompanying signing
// CA before anything is written; on verification failure nothing is
// persisted. On success the signing CA and any additionally trusted CAs are
// folded into the shared trust bundle.
func (l *LocalBrokerCertificate) PersistBrokerCertificates(signingCABytes []byte, certBytes []byte, keyBytes []byte, additionalTrustedCABytes [][]byte, store *truststore.MessagingTrustedCAs) error {
	caCerts, err := pkix.ParseCertificate(signingCABytes)
	if err != nil {
		return fmt.Errorf("signing CA: %s%w", err.Error(), model.ErrMalformedPEM)
	}
	leafCerts, err := pkix.ParseCertificate(certBytes)
	if err != nil {
		return fmt.Errorf("broker certificate: %s%w", err.Error(), model.ErrMalformedPEM)
	}
	key, err := pkix.ParsePrivateKey(keyBytes)
	if err != nil {
		return fmt.Errorf("broker key: %s%w", err.Error(), model.ErrMalformedPEM)
	}

	if err := pkix.VerifySignedBy(leafCerts[0], caCerts[0]); err != nil {
		return fmt.Errorf("%s%w", err.Error(), model.ErrUnverifiedCertificate)
	}
	if !pkix.IsPublicKeyOf(key, leafCerts[0].PublicKey) {
		return fmt.Errorf("broker key does not pair with certificate%w", model.ErrMalformedPEM)
	}

	bundle := &keypair.CertificateWithPrivateKey{
		Certificate: model.NewCertificate(leafCerts[0]),
		PrivateKey:  key,
	}
	if err := l.Persist(bundle); err != nil {
		return err
	}

	trusted := append([][]byte{signingCABytes}, additionalTrustedCABytes...)
	for _, caBytes := range trusted {
		if err := store.Add(caBytes); err != nil {
			return err
		}
	}
	return nil
}
