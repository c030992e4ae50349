package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/confidential-portfolio-ledger/api/portfoliohandler"
	"github.com/ruteri/confidential-portfolio-ledger/cmd/flags"
	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/httpserver"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
	"github.com/ruteri/confidential-portfolio-ledger/journal"
	"github.com/ruteri/confidential-portfolio-ledger/ledger"
	"github.com/ruteri/confidential-portfolio-ledger/oracle"
)

var PortfolioServiceLogFlag = flags.LogServiceFlagFn("portfolio-ledger")

var ConfigFileFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "YAML configuration file; flags override its values",
}
var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var OracleURLFlag = &cli.StringFlag{
	Name:  "oracle-url",
	Usage: "decryption oracle base URL; leave empty to discover via DNS SRV",
}
var OracleDomainFlag = &cli.StringFlag{
	Name:  "oracle-domain",
	Usage: "DNS SRV domain to discover oracle endpoints, e.g. _oracle._tcp.internal",
}
var DNSResolverFlag = &cli.StringFlag{
	Name:  "dns-resolver",
	Usage: "DNS resolver address for oracle discovery",
}
var CallbackURLFlag = &cli.StringFlag{
	Name:  "callback-url",
	Usage: "externally reachable base URL of this server, handed to the oracle",
}
var VerifierFlag = &cli.StringFlag{
	Name:  "verifier",
	Value: "ecdsa",
	Usage: "callback proof scheme: 'ecdsa' or 'tdx'",
}
var OracleAddressFlag = &cli.StringSliceFlag{
	Name:  "oracle-address",
	Usage: "authorized oracle signing address (hex), repeatable; required for the ecdsa verifier",
}
var JournalLocationFlag = &cli.StringSliceFlag{
	Name:  "journal",
	Usage: "journal backend URI (file://, s3://, ipfs://, vault://), repeatable",
}

func main() {
	app := &cli.App{
		Name:  "portfolio-server",
		Usage: "Serve the confidential portfolio API",
		Flags: append([]cli.Flag{
			ConfigFileFlag,
			ListenAddrFlag,
			OracleURLFlag,
			OracleDomainFlag,
			DNSResolverFlag,
			CallbackURLFlag,
			VerifierFlag,
			OracleAddressFlag,
			JournalLocationFlag,
			PortfolioServiceLogFlag,
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := resolveConfig(cCtx)
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}

	// Oracle endpoint: explicit URL or DNS SRV discovery.
	oracleURL := cfg.OracleURL
	if oracleURL == "" {
		if cfg.OracleDomain == "" {
			return errors.New("either oracle-url or oracle-domain is required")
		}

		targets, err := oracle.ResolveEndpoints(cfg.OracleDomain, cfg.DNSResolver)
		if err != nil {
			logger.Error("Oracle discovery failed", "err", err, "domain", cfg.OracleDomain)
			return err
		}
		oracleURL = "http://" + targets[0]
		logger.Info("Discovered oracle endpoint", "endpoint", oracleURL, "candidates", len(targets))
	}

	callbackURL := cfg.CallbackURL
	if callbackURL == "" {
		callbackURL = "http://" + cfg.ListenAddr
	}

	oracleClient := &oracle.Client{
		Endpoint:    oracleURL,
		CallbackURL: callbackURL + "/api/oracle/callback",
	}

	verifier, err := setupVerifier(cfg)
	if err != nil {
		logger.Error("Failed to set up proof verifier", "err", err)
		return err
	}

	notifiers := []interfaces.Notifier{&ledger.SlogNotifier{Log: logger}}
	if len(cfg.JournalLocations) > 0 {
		locations := make([]interfaces.JournalLocation, len(cfg.JournalLocations))
		for i, loc := range cfg.JournalLocations {
			locations[i] = interfaces.JournalLocation(loc)
		}

		multiJournal, err := journal.NewFactory(logger).CreateMultiJournal(locations)
		if err != nil {
			logger.Error("Failed to create journal", "err", err)
			return err
		}
		logger.Info("Journaling lifecycle events", "backends", multiJournal.Name())
		notifiers = append(notifiers, &ledger.JournalNotifier{Journal: multiJournal, Log: logger})
	}

	controller := ledger.NewController(oracleClient, verifier, logger, notifiers...)
	handler := portfoliohandler.NewHandler(controller, logger)

	serverCfg := flags.ConfigureServer(cCtx, logger, cfg.ListenAddr)
	serverCfg.MetricsAddr = cfg.MetricsAddr

	server, err := httpserver.New(serverCfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server", "oracle", oracleURL, "verifier", cfg.Verifier)
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

// resolveConfig merges the optional YAML file with command-line flags; a flag
// explicitly set on the command line wins.
func resolveConfig(cCtx *cli.Context) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if path := cCtx.String(ConfigFileFlag.Name); path != "" {
		loaded, err := LoadServerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cCtx.IsSet(ListenAddrFlag.Name) || cfg.ListenAddr == "" {
		cfg.ListenAddr = cCtx.String(ListenAddrFlag.Name)
	}
	if cCtx.IsSet(flags.MetricsAddrFlag.Name) || cfg.MetricsAddr == "" {
		cfg.MetricsAddr = cCtx.String(flags.MetricsAddrFlag.Name)
	}
	if cCtx.IsSet(OracleURLFlag.Name) {
		cfg.OracleURL = cCtx.String(OracleURLFlag.Name)
	}
	if cCtx.IsSet(OracleDomainFlag.Name) {
		cfg.OracleDomain = cCtx.String(OracleDomainFlag.Name)
	}
	if cCtx.IsSet(DNSResolverFlag.Name) {
		cfg.DNSResolver = cCtx.String(DNSResolverFlag.Name)
	}
	if cCtx.IsSet(CallbackURLFlag.Name) {
		cfg.CallbackURL = cCtx.String(CallbackURLFlag.Name)
	}
	if cCtx.IsSet(VerifierFlag.Name) || cfg.Verifier == "" {
		cfg.Verifier = cCtx.String(VerifierFlag.Name)
	}
	if addresses := cCtx.StringSlice(OracleAddressFlag.Name); len(addresses) > 0 {
		cfg.OracleAddresses = addresses
	}
	if locations := cCtx.StringSlice(JournalLocationFlag.Name); len(locations) > 0 {
		cfg.JournalLocations = locations
	}

	return cfg, nil
}

func setupVerifier(cfg *ServerConfig) (interfaces.ProofVerifier, error) {
	switch cfg.Verifier {
	case "ecdsa":
		oracles := make([]interfaces.Identity, 0, len(cfg.OracleAddresses))
		for _, raw := range cfg.OracleAddresses {
			identity, err := interfaces.NewIdentityFromHex(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid oracle address %q: %w", raw, err)
			}
			oracles = append(oracles, identity)
		}
		return cryptoutils.NewECDSAVerifier(oracles)
	case "tdx":
		return cryptoutils.NewTDXVerifier(nil), nil
	default:
		return nil, fmt.Errorf("unknown verifier scheme: %s", cfg.Verifier)
	}
}
