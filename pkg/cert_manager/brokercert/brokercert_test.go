package brokercert_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/brokercert"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/pkix"
	"github.com/stretchr/testify/suite"
)

const testKeySize = 2048

type BrokerCertTestSuite struct {
	suite.Suite

	root string
	ca   *authority.Authority
}

func TestBrokerCertTestSuite(t *testing.T) {
	suite.Run(t, new(BrokerCertTestSuite))
}

func (s *BrokerCertTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	ca, err := authority.CreateAndPersistBrokerCA(s.root, "heute", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)
	s.ca = ca
}

func (s *BrokerCertTestSuite) TestCreateBundleIsPure() {
	local := brokercert.NewLocalBrokerCertificate(s.root)

	bundle, err := brokercert.CreateBundle("heute", s.ca, keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)
	s.Require().Equal("heute", bundle.Certificate.SubjectCN())
	s.Require().NoError(bundle.VerifyIsSignedBy(s.ca.Certificate()))

	// Nothing written until Persist.
	s.Require().NoFileExists(local.CertPath())
	s.Require().NoFileExists(local.KeyPath())
}

func (s *BrokerCertTestSuite) TestPersistAndLoad() {
	local := brokercert.NewLocalBrokerCertificate(s.root)

	bundle, err := brokercert.CreateBundle("heute", s.ca, keypair.Days(90), testKeySize)
	s.Require().NoError(err)
	s.Require().NoError(local.Persist(bundle))

	s.Require().FileExists(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "cert.pem"))
	s.Require().FileExists(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "key.pem"))

	loaded, err := local.Load()
	s.Require().NoError(err)
	s.Require().Equal("heute", loaded.Certificate.SubjectCN())
}

func (s *BrokerCertTestSuite) TestLoadMissing() {
	local := brokercert.NewLocalBrokerCertificate(s.T().TempDir())
	_, err := local.Load()
	s.Require().ErrorIs(err, model.ErrCertNotFound)
}

func (s *BrokerCertTestSuite) remoteIssued() (caPEM []byte, certPEM []byte, keyPEM []byte) {
	// A central site issues a broker certificate for us with its own CA.
	centralRoot := s.T().TempDir()
	centralCA, err := authority.CreateAndPersistBrokerCA(centralRoot, "central", keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	bundle, err := brokercert.CreateBundle("heute", centralCA, keypair.RelativeExpiry{}, testKeySize)
	s.Require().NoError(err)

	caPEM, err = centralCA.Certificate().PEM()
	s.Require().NoError(err)
	certPEM, err = bundle.Certificate.PEM()
	s.Require().NoError(err)
	keyPEM, err = pkix.MarshalPrivateKey(bundle.PrivateKey)
	s.Require().NoError(err)
	return caPEM, certPEM, keyPEM
}

func (s *BrokerCertTestSuite) TestPersistBrokerCertificates() {
	caPEM, certPEM, keyPEM := s.remoteIssued()

	extraCA, err := s.ca.Certificate().PEM()
	s.Require().NoError(err)

	local := brokercert.NewLocalBrokerCertificate(s.root)
	store := truststore.New(s.root)
	s.Require().NoError(local.PersistBrokerCertificates(caPEM, certPEM, keyPEM, [][]byte{extraCA}, store))

	loaded, err := local.Load()
	s.Require().NoError(err)
	s.Require().Equal("heute", loaded.Certificate.SubjectCN())

	bundle, err := store.Read()
	s.Require().NoError(err)
	s.Require().Contains(string(bundle), string(caPEM))
	s.Require().Contains(string(bundle), string(extraCA))
}

func (s *BrokerCertTestSuite) TestPersistBrokerCertificatesRejectsUnverified() {
	_, certPEM, keyPEM := s.remoteIssued()

	// The local broker CA did not sign that certificate.
	wrongCA, err := s.ca.Certificate().PEM()
	s.Require().NoError(err)

	local := brokercert.NewLocalBrokerCertificate(s.root)
	store := truststore.New(s.root)
	err = local.PersistBrokerCertificates(wrongCA, certPEM, keyPEM, nil, store)
	s.Require().ErrorIs(err, model.ErrUnverifiedCertificate)

	// Nothing was written.
	s.Require().NoFileExists(local.CertPath())
	s.Require().NoFileExists(local.KeyPath())
	_, err = os.Stat(store.Path())
	s.Require().True(os.IsNotExist(err))
}

func (s *BrokerCertTestSuite) TestPersistBrokerCertificatesRejectsMismatchedKey() {
	caPEM, certPEM, _ := s.remoteIssued()

	otherKey, err := pkix.CreatePrivateKey(testKeySize)
	s.Require().NoError(err)
	otherKeyPEM, err := pkix.MarshalPrivateKey(otherKey)
	s.Require().NoError(err)

	local := brokercert.NewLocalBrokerCertificate(s.root)
	err = local.PersistBrokerCertificates(caPEM, certPEM, otherKeyPEM, nil, truststore.New(s.root))
	s.Require().ErrorIs(err, model.ErrMalformedPEM)
	s.Require().NoFileExists(local.CertPath())
}

func (s *BrokerCertTestSuite) TestRemoteSiteCertsStore() {
	store := brokercert.NewRemoteSiteCertsStore(filepath.Join(s.root, "etc", "rabbitmq", "ssl", "remote_sites"))

	// Empty store lists nothing.
	sites, err := store.List()
	s.Require().NoError(err)
	s.Require().Empty(sites)

	s.Require().NoError(store.Save("paris", s.ca.Certificate()))
	s.Require().NoError(store.Save("berlin", s.ca.Certificate()))

	sites, err = store.List()
	s.Require().NoError(err)
	s.Require().ElementsMatch([]string{"paris", "berlin"}, sites)

	cert, err := store.Load("paris")
	s.Require().NoError(err)
	s.Require().Equal(s.ca.Certificate().SubjectCN(), cert.SubjectCN())

	_, err = store.Load("unknown")
	s.Require().ErrorIs(err, model.ErrCertNotFound)
}
