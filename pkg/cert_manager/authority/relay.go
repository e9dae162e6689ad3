package authority

import (
	"github.com/openmon/sitecert/pkg/cert_manager/audit"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
)

// CreateRelaysCA creates the relay signing CA and emits the audit event
// itself. Unlike the other CA domains the relay CA can come into existence
// outside the rotation workflow, so auditing cannot be left to the
// orchestrator here.
func CreateRelaysCA(root string, siteID string, expiry keypair.RelativeExpiry, keySize int, sink model.EventSink) (*Authority, error) {
	ca, err := Create(RelayDomain, root, siteID, expiry, keySize)
	if err != nil {
		return nil, err
	}

	if sink != nil {
		cert := ca.Certificate()
		sink.Emit(audit.NewEvent(model.EventCertificateCreated, model.ComponentRelayCA, "", &cert))
	}
	return ca, nil
}

// LoadOrCreateRelaysCA loads the relay CA, creating (and auditing) it on
// first use.
func LoadOrCreateRelaysCA(root string, siteID string, expiry keypair.RelativeExpiry, keySize int, sink model.EventSink) (*Authority, error) {
	ca, err := Load(RelayDomain, root, siteID)
	if err == nil {
		return ca, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return CreateRelaysCA(root, siteID, expiry, keySize, sink)
}
