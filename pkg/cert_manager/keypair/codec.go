package keypair

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/diskutil"
	"github.com/openmon/sitecert/pkg/pkix"
)

const (
	FileMode = os.FileMode(0o660)
	DirMode  = os.FileMode(0o770)
)

// SaveCombined writes private key, certificate and (when given) the issuer
// certificate into one file, in that order. The write replaces the file
// wholesale via an atomic rename so a reader never sees a key without its
// certificate.
func SaveCombined(path string, kp *CertificateWithPrivateKey, issuer *model.Certificate) error {
	keyPEM, err := pkix.MarshalPrivateKey(kp.PrivateKey)
	if err != nil {
		return err
	}
	certPEM, err := kp.Certificate.PEM()
	if err != nil {
		return err
	}

	combined := append(keyPEM, certPEM...)
	if issuer != nil {
		issuerPEM, err := issuer.PEM()
		if err != nil {
			return err
		}
		combined = append(combined, issuerPEM...)
	}

	if err := diskutil.EnsureDir(filepath.Dir(path), DirMode); err != nil {
		return err
	}
	return diskutil.AtomicWriteFile(path, combined, FileMode)
}

// LoadCombined reads a combined key+certificate file back. The key must pair
// with the certificate's public key, otherwise the file is treated as
// malformed.
func LoadCombined(path string) (*CertificateWithPrivateKey, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, model.ErrCertNotFound)
	} else if err != nil {
		return nil, err
	}

	key, err := pkix.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s%w", path, err.Error(), model.ErrMalformedPEM)
	}

	// The certificate blocks start after the key block.
	certs, err := pkix.ParseCertificate(skipFirstPEMBlock(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %s%w", path, err.Error(), model.ErrMalformedPEM)
	}

	if !pkix.IsPublicKeyOf(key, certs[0].PublicKey) {
		return nil, fmt.Errorf("%s: private key does not pair with certificate%w", path, model.ErrMalformedPEM)
	}

	return &CertificateWithPrivateKey{
		Certificate: model.NewCertificate(certs[0]),
		PrivateKey:  key,
	}, nil
}

// SaveSplit writes certificate and key into two separate files, the layout
// the message broker's TLS stack consumes.
func SaveSplit(certPath string, keyPath string, kp *CertificateWithPrivateKey) error {
	keyPEM, err := pkix.MarshalPrivateKey(kp.PrivateKey)
	if err != nil {
		return err
	}
	certPEM, err := kp.Certificate.PEM()
	if err != nil {
		return err
	}

	if err := diskutil.EnsureDir(filepath.Dir(certPath), DirMode); err != nil {
		return err
	}
	if err := diskutil.EnsureDir(filepath.Dir(keyPath), DirMode); err != nil {
		return err
	}
	if err := diskutil.AtomicWriteFile(keyPath, keyPEM, FileMode); err != nil {
		return err
	}
	return diskutil.AtomicWriteFile(certPath, certPEM, FileMode)
}

// LoadSplit reads a certificate/key pair stored across two files.
func LoadSplit(certPath string, keyPath string) (*CertificateWithPrivateKey, error) {
	certRaw, err := os.ReadFile(certPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", certPath, model.ErrCertNotFound)
	} else if err != nil {
		return nil, err
	}
	keyRaw, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", keyPath, model.ErrCertNotFound)
	} else if err != nil {
		return nil, err
	}

	certs, err := pkix.ParseCertificate(certRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s%w", certPath, err.Error(), model.ErrMalformedPEM)
	}
	key, err := pkix.ParsePrivateKey(keyRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s%w", keyPath, err.Error(), model.ErrMalformedPEM)
	}

	if !pkix.IsPublicKeyOf(key, certs[0].PublicKey) {
		return nil, fmt.Errorf("%s: private key does not pair with certificate%w", keyPath, model.ErrMalformedPEM)
	}

	return &CertificateWithPrivateKey{
		Certificate: model.NewCertificate(certs[0]),
		PrivateKey:  key,
	}, nil
}

func skipFirstPEMBlock(raw []byte) []byte {
	_, rest := pem.Decode(raw)
	return rest
}
