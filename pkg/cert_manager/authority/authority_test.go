package authority_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/pkix"
	"github.com/stretchr/testify/suite"
)

const testKeySize = 2048

type AuthorityTestSuite struct {
	suite.Suite

	root string
}

func TestAuthorityTestSuite(t *testing.T) {
	suite.Run(t, new(AuthorityTestSuite))
}

func (s *AuthorityTestSuite) SetupTest() {
	s.root = s.T().TempDir()
}

func (s *AuthorityTestSuite) TestCreateAndLoadSiteCA() {
	created, err := authority.Create(authority.SiteDomain, s.root, "heute", keypair.Years(10), testKeySize)
	s.Require().NoError(err)
	s.Require().Equal("Site 'heute' local CA", created.Certificate().SubjectCN())
	s.Require().True(created.Certificate().IsCA())

	s.Require().FileExists(filepath.Join(s.root, "etc", "ssl", "ca.pem"))

	loaded, err := authority.Load(authority.SiteDomain, s.root, "heute")
	s.Require().NoError(err)
	s.Require().Equal(created.Certificate().SerialNumber(), loaded.Certificate().SerialNumber())
}

func (s *AuthorityTestSuite) TestLoadMissingCA() {
	_, err := authority.Load(authority.SiteDomain, s.root, "heute")
	s.Require().ErrorIs(err, model.ErrCertNotFound)
}

func (s *AuthorityTestSuite) TestLoadOrCreateDoesNotClobber() {
	first, err := authority.LoadOrCreate(authority.SiteDomain, s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	second, err := authority.LoadOrCreate(authority.SiteDomain, s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	// Load wins: the second call returns the already persisted CA.
	s.Require().Equal(first.Certificate().SerialNumber(), second.Certificate().SerialNumber())
}

func (s *AuthorityTestSuite) TestDomainSubjectTemplates() {
	s.Require().Equal("Site 'heute' local CA", authority.SiteDomain.SubjectCN("heute"))
	s.Require().Equal("Site 'heute' agent signing CA", authority.AgentDomain.SubjectCN("heute"))
	s.Require().Equal("Site 'heute' broker CA", authority.BrokerDomain.SubjectCN("heute"))
	s.Require().Equal("Site 'heute' relay signing CA", authority.RelayDomain.SubjectCN("heute"))
	s.Require().Equal("Customer 'acme' broker CA", authority.CustomerBrokerDomain("acme").SubjectCN(""))
}

func (s *AuthorityTestSuite) TestDomainPathConventions() {
	s.Require().Equal(
		[]string{filepath.Join(s.root, "etc", "ssl", "ca.pem")},
		authority.SiteDomain.Paths(s.root),
	)
	s.Require().Equal(
		[]string{filepath.Join(s.root, "etc", "ssl", "agents", "ca.pem")},
		authority.AgentDomain.Paths(s.root),
	)
	s.Require().Equal(
		[]string{
			filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_cert.pem"),
			filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_key.pem"),
		},
		authority.BrokerDomain.Paths(s.root),
	)
	s.Require().Equal(
		[]string{filepath.Join(s.root, "etc", "ssl", "relays", "ca.pem")},
		authority.RelayDomain.Paths(s.root),
	)
}

func (s *AuthorityTestSuite) TestCreateSiteCertificate() {
	ca, err := authority.Create(authority.SiteDomain, s.root, "heute", keypair.Years(10), testKeySize)
	s.Require().NoError(err)

	leaf, err := ca.CreateSiteCertificate("heute", []string{"192.168.1.1", "monitor.example.com"}, keypair.Days(90), testKeySize)
	s.Require().NoError(err)

	s.Require().Equal("heute", leaf.Certificate.SubjectCN())
	s.Require().Equal(ca.Certificate().SubjectCN(), leaf.Certificate.IssuerCN())
	s.Require().NoError(leaf.VerifyIsSignedBy(ca.Certificate()))

	x509Cert := leaf.Certificate.X509()
	s.Require().Contains(x509Cert.DNSNames, "heute")
	s.Require().Contains(x509Cert.DNSNames, "monitor.example.com")
	s.Require().Len(x509Cert.IPAddresses, 1)
	s.Require().Len(x509Cert.URIs, 1)
	s.Require().Equal("site", x509Cert.URIs[0].Scheme)

	// key, cert and issuer cert end up in the per-site file.
	loaded, err := authority.LoadSiteCertificate(s.root, "heute")
	s.Require().NoError(err)
	s.Require().Equal("heute", loaded.Certificate.SubjectCN())
}

func (s *AuthorityTestSuite) TestCreateSiteCertificateWrongDomain() {
	ca, err := authority.Create(authority.AgentDomain, s.root, "heute", keypair.Years(10), testKeySize)
	s.Require().NoError(err)

	_, err = ca.CreateSiteCertificate("heute", nil, keypair.Days(90), testKeySize)
	s.Require().ErrorIs(err, model.ErrInvalidParameter)
}

func (s *AuthorityTestSuite) TestSignAgentCSR() {
	ca, err := authority.Create(authority.AgentDomain, s.root, "heute", keypair.Years(10), testKeySize)
	s.Require().NoError(err)

	key, err := pkix.CreatePrivateKey(testKeySize)
	s.Require().NoError(err)
	csrPEM, err := pkix.CreateCertificateSigningRequest(key, nil, "agent-host-01")
	s.Require().NoError(err)

	cert, err := ca.SignAgentCSR(csrPEM, keypair.RelativeExpiry{})
	s.Require().NoError(err)
	s.Require().Equal("agent-host-01", cert.SubjectCN())
	s.Require().NoError(pkix.VerifySignedBy(cert.X509(), ca.Certificate().X509()))
}

func (s *AuthorityTestSuite) TestBrokerCASplitLayoutAndTrustedCAs() {
	ca, err := authority.CreateAndPersistBrokerCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	certPath := filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_cert.pem")
	keyPath := filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_key.pem")
	s.Require().FileExists(certPath)
	s.Require().FileExists(keyPath)

	store := truststore.New(s.root)
	s.Require().NoError(ca.WriteTrustedCAs(store))

	bundle, err := os.ReadFile(store.Path())
	s.Require().NoError(err)
	certBytes, err := os.ReadFile(certPath)
	s.Require().NoError(err)
	s.Require().Equal(certBytes, bundle)
}

func (s *AuthorityTestSuite) TestWriteTrustedCAsMissingCert() {
	ca, err := authority.CreateAndPersistBrokerCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	s.Require().NoError(os.Remove(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_cert.pem")))
	err = ca.WriteTrustedCAs(truststore.New(s.root))
	s.Require().ErrorIs(err, model.ErrCertNotFound)
}

func (s *AuthorityTestSuite) TestCustomerBrokerCA() {
	domain := authority.CustomerBrokerDomain("acme")
	ca, err := authority.Create(domain, s.root, "", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)
	s.Require().Equal("Customer 'acme' broker CA", ca.Certificate().SubjectCN())
	s.Require().FileExists(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "customers", "acme", "ca_cert.pem"))
}

type recordingSink struct {
	events []model.CertManagementEvent
}

func (r *recordingSink) Emit(event model.CertManagementEvent) {
	r.events = append(r.events, event)
}

func (s *AuthorityTestSuite) TestRelaysCAEmitsEventAtCreation() {
	sink := &recordingSink{}

	ca, err := authority.CreateRelaysCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize, sink)
	s.Require().NoError(err)

	s.Require().Len(sink.events, 1)
	s.Require().Equal(model.EventCertificateCreated, sink.events[0].Kind)
	s.Require().Equal(model.ComponentRelayCA, sink.events[0].Component)
	s.Require().NotNil(sink.events[0].Cert)
	s.Require().Equal(ca.Certificate().SubjectCN(), sink.events[0].Cert.SubjectCN)

	// Loading an existing relay CA emits nothing.
	_, err = authority.LoadOrCreateRelaysCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize, sink)
	s.Require().NoError(err)
	s.Require().Len(sink.events, 1)
}

func (s *AuthorityTestSuite) TestExists() {
	s.Require().False(authority.Exists(authority.SiteDomain, s.root))

	_, err := authority.Create(authority.SiteDomain, s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)
	s.Require().True(authority.Exists(authority.SiteDomain, s.root))

	// Split layout counts as existing when only one of the two files is left.
	_, err = authority.CreateAndPersistBrokerCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)
	s.Require().NoError(os.Remove(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "ca_key.pem")))
	s.Require().True(authority.Exists(authority.BrokerDomain, s.root))
}
