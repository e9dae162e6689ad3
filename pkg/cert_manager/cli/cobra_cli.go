package cli

import (
	"fmt"
	"os"

	"github.com/openmon/sitecert/pkg/cert_manager/audit"
	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/brokercert"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/rotation"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Using a different name to avoid conflict with the one in cert_cli.go
const cobraAppName string = "sitecert"

// CobraApp is the main application structure for the Cobra-based CLI
type CobraApp struct {
	rootCmd *cobra.Command
}

// NewCobraApp creates a new instance of the Cobra CLI application
func NewCobraApp() *CobraApp {
	app := &CobraApp{}
	app.rootCmd = &cobra.Command{
		Use:   cobraAppName,
		Short: "Certificate management for a monitoring site",
		Long:  `Manages the site, agent, broker and relay certificate authorities and the certificates they issue.`,
	}
	app.rootCmd.PersistentFlags().String("root", ".", "Site root directory")
	app.rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	app.rootCmd.PersistentFlags().String("actor", "", "User recorded in audit events")

	createCmd := &cobra.Command{
		Use:       "create [target]",
		Short:     "Create or replace a certificate",
		Args:      cobra.ExactArgs(1),
		ValidArgs: rotation.TargetNames,
		RunE:      app.runCreate,
	}
	createCmd.Flags().IntP("expiry", "e", 0, "Validity period in days (default 90)")
	createCmd.Flags().Bool("replace", false, "Replace the certificate if it already exists")
	createCmd.Flags().Int("key-size", 0, "RSA key size in bits (default 4096)")
	app.rootCmd.AddCommand(createCmd)

	relayCACmd := &cobra.Command{
		Use:   "relay-ca",
		Short: "Ensure the relay signing CA exists",
		RunE:  app.runRelayCA,
	}
	relayCACmd.Flags().Int("key-size", 0, "RSA key size in bits (default 4096)")
	app.rootCmd.AddCommand(relayCACmd)

	trustCmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the broker trust bundle",
	}
	app.rootCmd.AddCommand(trustCmd)

	trustUpdateCmeCmd := &cobra.Command{
		Use:   "update-cme [sources...]",
		Short: "Rebuild the broker trust bundle from customer CA files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  app.runTrustUpdateCme,
	}
	trustCmd.AddCommand(trustUpdateCmeCmd)

	customerBrokerCACmd := &cobra.Command{
		Use:   "customer-broker-ca",
		Short: "Create a per-customer broker CA and trust it",
		RunE:  app.runCustomerBrokerCA,
	}
	customerBrokerCACmd.Flags().String("customer", "", "Customer identifier")
	customerBrokerCACmd.Flags().Int("key-size", 0, "RSA key size in bits (default 4096)")
	customerBrokerCACmd.MarkFlagRequired("customer")
	app.rootCmd.AddCommand(customerBrokerCACmd)

	remoteSiteCmd := &cobra.Command{
		Use:   "remote-site",
		Short: "Manage stored certificates of peer sites",
	}
	app.rootCmd.AddCommand(remoteSiteCmd)

	remoteSiteSaveCmd := &cobra.Command{
		Use:   "save [site]",
		Short: "Store the certificate of a peer site",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runRemoteSiteSave,
	}
	remoteSiteSaveCmd.Flags().String("cert", "", "Certificate PEM file")
	remoteSiteSaveCmd.MarkFlagRequired("cert")
	remoteSiteSaveCmd.MarkFlagFilename("cert")
	remoteSiteCmd.AddCommand(remoteSiteSaveCmd)

	remoteSiteListCmd := &cobra.Command{
		Use:   "list",
		Short: "List peer sites with a stored certificate",
		RunE:  app.runRemoteSiteList,
	}
	remoteSiteCmd.AddCommand(remoteSiteListCmd)

	remoteSiteShowCmd := &cobra.Command{
		Use:   "show [site]",
		Short: "Show the stored certificate of a peer site",
		Args:  cobra.ExactArgs(1),
		RunE:  app.runRemoteSiteShow,
	}
	remoteSiteCmd.AddCommand(remoteSiteShowCmd)

	return app
}

// Run executes the CLI application
func (app *CobraApp) Run() {
	if err := app.rootCmd.Execute(); err != nil {
		logrus.Errorf("failed to run command: %v", err)
		os.Exit(1)
	}
}

func (app *CobraApp) environment(cmd *cobra.Command) (environment, error) {
	root, _ := cmd.Flags().GetString("root")
	configPath, _ := cmd.Flags().GetString("config")
	cli := &SiteCertCli{Root: root, Config: configPath}
	return cli.environment()
}

func (app *CobraApp) runCreate(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	expiry, _ := cmd.Flags().GetInt("expiry")
	replace, _ := cmd.Flags().GetBool("replace")
	keySize, _ := cmd.Flags().GetInt("key-size")
	actor, _ := cmd.Flags().GetString("actor")

	target, err := rotation.ParseTarget(args[0])
	if err != nil {
		return err
	}

	msg, err := rotation.New(env.root, env.sink).Rotate(rotation.Request{
		SiteID:  env.siteID,
		Target:  target,
		Expiry:  env.leafExpiry(expiry),
		KeySize: env.keySize(keySize),
		Replace: replace,
		Actor:   actor,
	})
	if err != nil {
		return err
	}

	fmt.Println(msg)
	return nil
}

func (app *CobraApp) runRelayCA(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	keySize, _ := cmd.Flags().GetInt("key-size")

	_, err = authority.LoadOrCreateRelaysCA(env.root, env.siteID, keypair.RelativeExpiry{}, env.keySize(keySize), env.sink)
	if err != nil {
		return err
	}

	fmt.Printf("relay signing CA for site '%s' is in place\n", env.siteID)
	return nil
}

func (app *CobraApp) runTrustUpdateCme(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	actor, _ := cmd.Flags().GetString("actor")

	store := truststore.New(env.root)
	if err := store.UpdateFromSources(args); err != nil {
		return err
	}
	env.sink.Emit(audit.NewEvent(model.EventCertificateAdded, model.ComponentTrustedCAs, actor, nil))

	fmt.Printf("trust bundle %s updated from %d sources\n", store.Path(), len(args))
	return nil
}

func (app *CobraApp) runCustomerBrokerCA(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	customer, _ := cmd.Flags().GetString("customer")
	keySize, _ := cmd.Flags().GetInt("key-size")
	actor, _ := cmd.Flags().GetString("actor")

	domain := authority.CustomerBrokerDomain(customer)
	ca, err := authority.LoadOrCreate(domain, env.root, customer, keypair.RelativeExpiry{}, env.keySize(keySize))
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
	cert := ca.Certificate()
	env.sink.Emit(audit.NewEvent(model.EventCertificateCreated, model.ComponentCustomerBrokerCA, actor, &cert))

	fmt.Printf("broker CA for customer '%s' is in place and trusted\n", customer)
	return nil
}

func (app *CobraApp) runRemoteSiteSave(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}
	certPath, _ := cmd.Flags().GetString("cert")
	actor, _ := cmd.Flags().GetString("actor")

	raw, err := os.ReadFile(certPath)
	if err != nil {
		return err
	}
	cert, err := model.ParseCertificatePEM(raw)
	if err != nil {
		return err
	}
	store := brokercert.NewRemoteSiteCertsStore(brokercert.RemoteSiteCertsDir(env.root))
	if err := store.Save(args[0], cert); err != nil {
		return err
	}
	env.sink.Emit(audit.NewEvent(model.EventCertificateUploaded, model.ComponentTrustedCAs, actor, &cert))

	fmt.Printf("certificate of site '%s' stored\n", args[0])
	return nil
}

func (app *CobraApp) runRemoteSiteList(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
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

func (app *CobraApp) runRemoteSiteShow(cmd *cobra.Command, args []string) error {
	env, err := app.environment(cmd)
	if err != nil {
		return err
	}

	store := brokercert.NewRemoteSiteCertsStore(brokercert.RemoteSiteCertsDir(env.root))
	cert, err := store.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(util.StructToPrettyJSON(model.DetailsOf(cert)))
	return nil
}
