package authority

import (
	"fmt"
	"net/url"

	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/pkix"
)

// DefaultSiteCertExpiry applies when a site leaf certificate is created
// without an explicit expiry.
var DefaultSiteCertExpiry = keypair.Days(90)

// CreateSiteCertificate issues and persists the site's leaf certificate,
// signed by this CA. Built-in SANs are the site id as DNS name plus a
// site-scheme URI; additional caller-supplied entries are classified as
// IPv4 address, IP network or hostname, in that order.
func (a *Authority) CreateSiteCertificate(siteID string, additionalSANs []string, expiry keypair.RelativeExpiry, keySize int) (*keypair.CertificateWithPrivateKey, error) {
	if a.Domain.Component != model.ComponentSiteCA {
		return nil, fmt.Errorf("site certificates are issued by the site CA, not %s%w", a.Domain.Component, model.ErrInvalidParameter)
	}
	if expiry.IsZero() {
		expiry = DefaultSiteCertExpiry
	}

	sans := pkix.ClassifySANs(additionalSANs)
	sans.DNSNames = append([]string{siteID}, sans.DNSNames...)
	sans.URIs = append([]*url.URL{{Scheme: "site", Host: siteID}}, sans.URIs...)

	leaf, err := a.KeyPair.IssueNewCertificate(siteID, a.Domain.Organization(a.Identity), sans, expiry, keySize, false)
	if err != nil {
		return nil, err
	}

	issuer := a.Certificate()
	if err := keypair.SaveCombined(SiteCertificatePath(a.Root, siteID), leaf, &issuer); err != nil {
		return nil, err
	}
	return leaf, nil
}

// LoadSiteCertificate reads a site's leaf certificate back from disk.
func LoadSiteCertificate(root string, siteID string) (*keypair.CertificateWithPrivateKey, error) {
	return keypair.LoadCombined(SiteCertificatePath(root, siteID))
}
