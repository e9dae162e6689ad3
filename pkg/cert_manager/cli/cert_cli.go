package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/openmon/sitecert/pkg/cert_manager/audit"
	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/brokercert"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/rotation"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/config"
	"github.com/openmon/sitecert/pkg/util"
	"github.com/sirupsen/logrus"
)

const appName string = "sitecert"

type App struct{}

// Config is the optional yaml configuration file. Every value has a flag or
// environment fallback; the file only changes defaults.
type Config struct {
	SiteRoot   string `yaml:"site_root"`
	SiteID     string `yaml:"site_id"`
	KeySize    int    `yaml:"key_size"`
	ExpiryDays int    `yaml:"expiry_days"`
	AuditLog   string `yaml:"audit_log"`
}

type CreateCmd struct {
	Target  string `arg:"" enum:"site,site-ca,agent-ca,broker-ca,broker" help:"Certificate to create: site, site-ca, agent-ca, broker-ca or broker."`
	Expiry  int    `short:"e" long:"expiry" default:"0" help:"Validity period in days (default 90)."`
	Replace bool   `long:"replace" help:"Replace the certificate if it already exists."`
	KeySize int    `long:"key-size" default:"0" help:"RSA key size in bits (default 4096)."`
}

type RelayCACmd struct {
	KeySize int `long:"key-size" default:"0" help:"RSA key size in bits (default 4096)."`
}

type TrustUpdateCmeCmd struct {
	Sources []string `arg:"" help:"CA certificate files to concatenate into the trust bundle. Missing files are skipped."`
}

type CustomerBrokerCACmd struct {
	Customer string `long:"customer" help:"Customer identifier." required:""`
	KeySize  int    `long:"key-size" default:"0" help:"RSA key size in bits (default 4096)."`
}

type RemoteSiteSaveCmd struct {
	Site string `arg:"" help:"Site identifier the certificate belongs to."`
	Cert []byte `type:"filecontent" help:"Certificate PEM file." required:""`
}

type RemoteSiteListCmd struct{}

type RemoteSiteShowCmd struct {
	Site string `arg:"" help:"Site identifier."`
}

type SiteCertCli struct {
	Root   string `long:"root" env:"SITE_ROOT" default:"." help:"Site root directory."`
	Config string `short:"c" long:"config" type:"existingfile" help:"Path to the configuration file."`
	Actor  string `long:"actor" help:"User recorded in audit events."`

	Create  CreateCmd  `cmd:"" default:"withargs" help:"Create or replace a certificate."`
	RelayCA RelayCACmd `cmd:"" name:"relay-ca" help:"Ensure the relay signing CA exists."`

	Trust struct {
		UpdateCme TrustUpdateCmeCmd `cmd:"" name:"update-cme" help:"Rebuild the broker trust bundle from customer CA files."`
	} `cmd:"" help:"Manage the broker trust bundle."`

	CustomerBrokerCA CustomerBrokerCACmd `cmd:"" name:"customer-broker-ca" help:"Create a per-customer broker CA and trust it."`

	RemoteSite struct {
		Save RemoteSiteSaveCmd `cmd:"" help:"Store the certificate of a peer site."`
		List RemoteSiteListCmd `cmd:"" help:"List peer sites with a stored certificate."`
		Show RemoteSiteShowCmd `cmd:"" help:"Show the stored certificate of a peer site."`
	} `cmd:"" name:"remote-site" help:"Manage stored certificates of peer sites."`
}

func (*App) Run() {
	cli := SiteCertCli{}
	ctx := kong.Parse(&cli, kong.Name(appName))
	err := ctx.Run(&cli)
	if err != nil {
		logrus.Errorf("failed to run command: %v", err)
		os.Exit(1)
	}
}

// environment is the resolved runtime context shared by every command.
type environment struct {
	root   string
	siteID string
	cfg    Config
	sink   model.EventSink
}

func (cli *SiteCertCli) environment() (environment, error) {
	env := environment{root: cli.Root}
	if cli.Config != "" {
		if err := config.FromFile(cli.Config, &env.cfg); err != nil {
			return environment{}, fmt.Errorf("failed to load config %s: %v", cli.Config, err)
		}
	}
	if env.cfg.SiteRoot != "" {
		env.root = env.cfg.SiteRoot
	}

	env.siteID = os.Getenv("SITE_ID")
	if env.siteID == "" {
		env.siteID = env.cfg.SiteID
	}
	if env.siteID == "" {
		return environment{}, fmt.Errorf("SITE_ID environment variable is not set%w", model.ErrInvalidParameter)
	}

	auditLog := env.cfg.AuditLog
	if auditLog == "" {
		auditLog = filepath.Join(env.root, "var", "log", "cert-events.log")
	}
	env.sink = audit.MultiSink{audit.LogSink{}, audit.NewFileSink(auditLog)}
	return env, nil
}

func (env environment) keySize(flag int) int {
	if flag > 0 {
		return flag
	}
	return env.cfg.KeySize
}

func (env environment) leafExpiry(flagDays int) keypair.RelativeExpiry {
	if flagDays > 0 {
		return keypair.Days(flagDays)
	}
	if env.cfg.ExpiryDays > 0 {
		return keypair.Days(env.cfg.ExpiryDays)
	}
	return keypair.Days(90)
}

func (cmd *CreateCmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	target, err := rotation.ParseTarget(cli.Create.Target)
	if err != nil {
		return err
	}

	msg, err := rotation.New(env.root, env.sink).Rotate(rotation.Request{
		SiteID:  env.siteID,
		Target:  target,
		Expiry:  env.leafExpiry(cli.Create.Expiry),
		KeySize: env.keySize(cli.Create.KeySize),
		Replace: cli.Create.Replace,
		Actor:   cli.Actor,
	})
	if err != nil {
		return err
	}

	fmt.Println(msg)
	return nil
}

func (cmd *RelayCACmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	_, err = authority.LoadOrCreateRelaysCA(env.root, env.siteID, keypair.RelativeExpiry{}, env.keySize(cli.RelayCA.KeySize), env.sink)
	if err != nil {
		return err
	}

	fmt.Printf("relay signing CA for site '%s' is in place\n", env.siteID)
	return nil
}

func (cmd *TrustUpdateCmeCmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	store := truststore.New(env.root)
	if err := store.UpdateFromSources(cli.Trust.UpdateCme.Sources); err != nil {
		return err
	}
	if env.sink != nil {
		env.sink.Emit(audit.NewEvent(model.EventCertificateAdded, model.ComponentTrustedCAs, cli.Actor, nil))
	}

	fmt.Printf("trust bundle %s updated from %d sources\n", store.Path(), len(cli.Trust.UpdateCme.Sources))
	return nil
}

func (cmd *CustomerBrokerCACmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	customer := cli.CustomerBrokerCA.Customer
	domain := authority.CustomerBrokerDomain(customer)
	ca, err := authority.LoadOrCreate(domain, env.root, customer, keypair.RelativeExpiry{}, env.keySize(cli.CustomerBrokerCA.KeySize))
	if err != nil {
		return err
	}

	certPEM, err := ca.Certificate().PEM()
	if err != nil {
		return err
	}
	if err := truststore.New(env.root).Add(certPEM); err != nil {
		return err
	}
	if env.sink != nil {
		cert := ca.Certificate()
		env.sink.Emit(audit.NewEvent(model.EventCertificateCreated, model.ComponentCustomerBrokerCA, cli.Actor, &cert))
	}

	fmt.Printf("broker CA for customer '%s' is in place and trusted\n", customer)
	return nil
}

func (cmd *RemoteSiteSaveCmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	cert, err := model.ParseCertificatePEM(cli.RemoteSite.Save.Cert)
	if err != nil {
		return err
	}
	store := brokercert.NewRemoteSiteCertsStore(brokercert.RemoteSiteCertsDir(env.root))
	if err := store.Save(cli.RemoteSite.Save.Site, cert); err != nil {
		return err
	}
	if env.sink != nil {
		env.sink.Emit(audit.NewEvent(model.EventCertificateUploaded, model.ComponentTrustedCAs, cli.Actor, &cert))
	}

	fmt.Printf("certificate of site '%s' stored\n", cli.RemoteSite.Save.Site)
	return nil
}

func (cmd *RemoteSiteShowCmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	store := brokercert.NewRemoteSiteCertsStore(brokercert.RemoteSiteCertsDir(env.root))
	cert, err := store.Load(cli.RemoteSite.Show.Site)
	if err != nil {
		return err
	}

	fmt.Println(util.StructToPrettyJSON(model.DetailsOf(cert)))
	return nil
}

func (cmd *RemoteSiteListCmd) Run(cli *SiteCertCli) error {
	env, err := cli.environment()
	if err != nil {
		return err
	}

	store := brokercert.NewRemoteSiteCertsStore(brokercert.RemoteSiteCertsDir(env.root))
	sites, err := store.List()
	if err != nil {
		return err
	}
	for _, site := range sites {
		fmt.Println(site)
	}
	return nil
}
