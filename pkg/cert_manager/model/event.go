package model

type EventKind string
type Component string

const (
	EventCertificateCreated  EventKind = "certificate created"
	EventCertificateRemoved  EventKind = "certificate removed"
	EventCertificateRotated  EventKind = "certificate rotated"
	EventCertificateUploaded EventKind = "certificate uploaded"
	EventCertificateAdded    EventKind = "certificate added"

	ComponentSiteCert         Component = "site certificate"
	ComponentSiteCA           Component = "site CA"
	ComponentAgentCA          Component = "agent CA"
	ComponentBrokerCA         Component = "broker CA"
	ComponentBrokerCert       Component = "broker certificate"
	ComponentRelayCA          Component = "relay CA"
	ComponentCustomerBrokerCA Component = "customer broker CA"
	ComponentTrustedCAs       Component = "trusted CAs"
)

// CertDetails carries the certificate facts recorded in an audit event.
// Private key material never appears here.
type CertDetails struct {
	IssuerCN    string `json:"issuer_cn"`
	SubjectCN   string `json:"subject_cn"`
	NotBefore   int64  `json:"not_before"` // Unix Time (in second) when the certificate becomes valid.
	NotAfter    int64  `json:"not_after"`  // Unix Time (in second) when the certificate becomes invalid.
	Fingerprint string `json:"fingerprint"`
}

// CertManagementEvent is the audit record emitted after every successful
// mutation of certificate material. Emission is best effort: a failing sink
// never rolls back the operation it describes.
type CertManagementEvent struct {
	ID        string       `json:"id"`
	Kind      EventKind    `json:"kind"`
	Component Component    `json:"component"`
	Actor     string       `json:"actor,omitempty"` // User id, empty for system-initiated operations.
	CreatedAt int64        `json:"created_at"`      // Unix Time (in second).
	Cert      *CertDetails `json:"cert,omitempty"`
}

// EventSink consumes audit events. Implementations must swallow their own
// failures (logging them) instead of propagating.
type EventSink interface {
	Emit(event CertManagementEvent)
}

// DetailsOf extracts the audit-relevant facts of a certificate.
func DetailsOf(cert Certificate) *CertDetails {
	return &CertDetails{
		IssuerCN:    cert.IssuerCN(),
		SubjectCN:   cert.SubjectCN(),
		NotBefore:   cert.NotBefore().Unix(),
		NotAfter:    cert.NotAfter().Unix(),
		Fingerprint: cert.Fingerprint(),
	}
}
