package authority

import (
	"fmt"

	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/pkix"
)

// DefaultAgentCertExpiry applies when an agent pairing certificate is signed
// without an explicit expiry.
var DefaultAgentCertExpiry = keypair.Years(5)

// SignAgentCSR issues an agent pairing certificate from an agent-supplied
// CSR. The common name is taken from the CSR; this CA never invents one.
func (a *Authority) SignAgentCSR(csrPEM []byte, expiry keypair.RelativeExpiry) (model.Certificate, error) {
	if a.Domain.Component != model.ComponentAgentCA {
		return model.Certificate{}, fmt.Errorf("agent certificates are signed by the agent CA, not %s%w", a.Domain.Component, model.ErrInvalidParameter)
	}
	if expiry.IsZero() {
		expiry = DefaultAgentCertExpiry
	}
	return a.KeyPair.SignCSR(csrPEM, expiry, pkix.SubjectAltNames{})
}
