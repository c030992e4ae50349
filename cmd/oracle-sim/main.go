package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/vault/shamir"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/confidential-portfolio-ledger/api/portfoliohandler"
	"github.com/ruteri/confidential-portfolio-ledger/cmd/flags"
	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/httpserver"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
	"github.com/ruteri/confidential-portfolio-ledger/oracle"
)

// handlePrefix marks development ciphertext handles whose "decryption" is
// simply stripping the prefix.
const handlePrefix = "plain:"

var OracleSimLogFlag = flags.LogServiceFlagFn("oracle-sim")

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:9000",
	Usage: "address to listen on for the decrypt API",
}
var CallbackURLFlag = &cli.StringFlag{
	Name:  "callback-url",
	Usage: "portfolio server callback URL used when a request does not carry one",
}
var PassphraseFlag = &cli.StringFlag{
	Name:  "signing-passphrase",
	Usage: "passphrase the signing key is derived from (argon2id)",
}
var SaltFlag = &cli.StringFlag{
	Name:  "signing-salt",
	Value: "portfolio-oracle-sim",
	Usage: "salt for signing key derivation; must be stable across restarts",
}
var ShareFlag = &cli.StringSliceFlag{
	Name:  "signing-share",
	Usage: "hex-encoded Shamir share of the signing seed, repeatable; alternative to a passphrase",
}
var CallbackDelayFlag = &cli.DurationFlag{
	Name:  "callback-delay",
	Value: 100 * time.Millisecond,
	Usage: "artificial delay before posting the callback",
}

func main() {
	app := &cli.App{
		Name:  "oracle-sim",
		Usage: "Development decryption oracle for the portfolio service",
		Flags: append([]cli.Flag{
			ListenAddrFlag,
			CallbackURLFlag,
			PassphraseFlag,
			SaltFlag,
			ShareFlag,
			CallbackDelayFlag,
			OracleSimLogFlag,
		}, flags.CommonFlags...),
		Action: runOracle,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runOracle(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	key, err := setupSigningKey(cCtx)
	if err != nil {
		logger.Error("Failed to set up signing key", "err", err)
		return err
	}
	logger.Info("Oracle identity derived", "address", cryptoutils.SignerIdentity(key).String())

	sim := &simulator{
		key:           key,
		callbackURL:   cCtx.String(CallbackURLFlag.Name),
		callbackDelay: cCtx.Duration(CallbackDelayFlag.Name),
		log:           logger,
	}

	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String(ListenAddrFlag.Name)), sim)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting oracle simulator")
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	sim.wg.Wait()
	return nil
}

// setupSigningKey derives the oracle signing key either from an argon2id
// passphrase or by recombining Shamir shares of the raw seed.
func setupSigningKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	passphrase := cCtx.String(PassphraseFlag.Name)
	shares := cCtx.StringSlice(ShareFlag.Name)

	switch {
	case passphrase != "" && len(shares) > 0:
		return nil, errors.New("signing-passphrase and signing-share are mutually exclusive")

	case passphrase != "":
		seed := cryptoutils.DeriveSigningSeed([]byte(passphrase), []byte(cCtx.String(SaltFlag.Name)))
		return cryptoutils.SigningKeyFromSeed(seed)

	case len(shares) > 0:
		rawShares := make([][]byte, 0, len(shares))
		for _, share := range shares {
			raw, err := hex.DecodeString(share)
			if err != nil {
				return nil, fmt.Errorf("invalid signing share: %w", err)
			}
			rawShares = append(rawShares, raw)
		}

		seed, err := shamir.Combine(rawShares)
		if err != nil {
			return nil, fmt.Errorf("could not recombine signing seed: %w", err)
		}
		return cryptoutils.SigningKeyFromSeed(seed)

	default:
		return nil, errors.New("either signing-passphrase or signing-share is required")
	}
}

// simulator serves the oracle decrypt API and posts signed callbacks.
type simulator struct {
	key           *ecdsa.PrivateKey
	callbackURL   string
	callbackDelay time.Duration
	log           *slog.Logger
	wg            sync.WaitGroup
}

// RegisterRoutes implements httpserver.RouteRegistrar.
func (s *simulator) RegisterRoutes(r chi.Router) {
	r.Post(oracle.DecryptPath, s.handleDecrypt)
}

func (s *simulator) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req oracle.DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Errorf("invalid decrypt request: %w", err).Error(), http.StatusBadRequest)
		return
	}

	if len(req.Handles) != 2 {
		http.Error(w, fmt.Sprintf("expected 2 ciphertext handles, got %d", len(req.Handles)), http.StatusBadRequest)
		return
	}

	summary, err := decryptHandle(req.Handles[0])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rawScore, err := decryptHandle(req.Handles[1])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	score, err := strconv.ParseUint(rawScore, 10, 32)
	if err != nil {
		http.Error(w, fmt.Errorf("score handle does not decrypt to a number: %w", err).Error(), http.StatusBadRequest)
		return
	}

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = s.callbackURL
	}
	if callbackURL == "" {
		http.Error(w, "no callback URL in request and none configured", http.StatusBadRequest)
		return
	}

	requestID := mintRequestID()
	s.log.Info("Decryption request accepted",
		slog.String("requestID", requestID.String()),
		slog.String("callbackURL", callbackURL))

	s.wg.Add(1)
	go s.deliverCallback(requestID, callbackURL, summary, uint32(score))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(oracle.DecryptResponse{RequestID: requestID.String()}); err != nil {
		s.log.Error("Failed to encode response", "err", err)
	}
}

func (s *simulator) deliverCallback(requestID interfaces.RequestID, callbackURL, summary string, score uint32) {
	defer s.wg.Done()
	time.Sleep(s.callbackDelay)

	cleartext, err := cryptoutils.EncodePayload(summary, score)
	if err != nil {
		s.log.Error("Failed to encode payload", "err", err, slog.String("requestID", requestID.String()))
		return
	}

	proof, err := cryptoutils.SignCallback(s.key, requestID, cleartext)
	if err != nil {
		s.log.Error("Failed to sign callback", "err", err, slog.String("requestID", requestID.String()))
		return
	}

	// The callback URL already points at the callback endpoint; strip the
	// path so the client helper can append it.
	serverURL := strings.TrimSuffix(callbackURL, "/api/oracle/callback")
	if _, err := portfoliohandler.Callback(nil, serverURL, requestID, cleartext, proof); err != nil {
		s.log.Error("Callback delivery failed", "err", err, slog.String("requestID", requestID.String()))
		return
	}
	s.log.Info("Callback delivered", slog.String("requestID", requestID.String()))
}

func decryptHandle(handle []byte) (string, error) {
	text := string(handle)
	if !strings.HasPrefix(text, handlePrefix) {
		return "", fmt.Errorf("cannot decrypt handle without %q prefix", handlePrefix)
	}
	return strings.TrimPrefix(text, handlePrefix), nil
}

func mintRequestID() interfaces.RequestID {
	id := uuid.Must(uuid.NewRandom())
	var requestID interfaces.RequestID
	copy(requestID[:], crypto.Keccak256([]byte("oracle-sim-request"), id[:]))
	return requestID
}
