package authority

import (
	"fmt"
	"os"

	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
)

// CreateAndPersistBrokerCA creates the broker CA and writes it to disk in one
// step. The broker flow has no in-memory stage: the CA files are always
// needed on disk immediately for the broker's TLS configuration.
func CreateAndPersistBrokerCA(root string, siteName string, expiry keypair.RelativeExpiry, keySize int) (*Authority, error) {
	return Create(BrokerDomain, root, siteName, expiry, keySize)
}

// WriteTrustedCAs copies this CA's certificate into the shared trust bundle.
// It reads the certificate from disk rather than from memory so that a CA
// replaced by another process is picked up; a missing certificate file is
// ErrCertNotFound.
func (a *Authority) WriteTrustedCAs(store *truststore.MessagingTrustedCAs) error {
	if a.Domain.Layout != LayoutSplit {
		return fmt.Errorf("domain %s does not feed the broker trust bundle%w", a.Domain.Component, model.ErrInvalidParameter)
	}

	certPath := a.Domain.CertPath(a.Root)
	certBytes, err := os.ReadFile(certPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", certPath, model.ErrCertNotFound)
	} else if err != nil {
		return err
	}

	return store.Write(certBytes)
}
