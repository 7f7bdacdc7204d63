package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/flsschain/flss/app/services/node/handlers"
	"github.com/flsschain/flss/foundation/blockchain/database/storage/disk"
	"github.com/flsschain/flss/foundation/blockchain/genesis"
	"github.com/flsschain/flss/foundation/blockchain/gossip"
	"github.com/flsschain/flss/foundation/blockchain/peer"
	"github.com/flsschain/flss/foundation/blockchain/state"
	"github.com/flsschain/flss/foundation/events"
	"github.com/flsschain/flss/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	// /////////////////////////////////////////////////////////////////
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Gossip struct {
			Host string `conf:"default:0.0.0.0:9080"`
		}
		Node struct {
			DBPath      string   `conf:"default:zblock/blocks"`
			GenesisFile string   `conf:"default:zblock/genesis.json"`
			KeysFolder  string   `conf:"default:zblock/keys/"`
			NodeName    string   `conf:"default:node1"`
			Peers       []string `conf:"help:peers as ws-url|http-url pairs"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "flss chain node",
		},
	}

	const prefix = "FLSS"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// /////////////////////////////////////////////////////////////////
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////
	// Node Identity

	privateKey, err := loadOrCreateKey(cfg.Node.KeysFolder, cfg.Node.NodeName)
	if err != nil {
		return fmt.Errorf("node identity: %w", err)
	}
	log.Infow("startup", "status", "node identity loaded", "account", crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

	// /////////////////////////////////////////////////////////////////
	// Chain Support

	gen := genesis.Default()
	if _, err := os.Stat(cfg.Node.GenesisFile); err == nil {
		gen, err = genesis.Load(cfg.Node.GenesisFile)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
	}

	storage, err := disk.New(cfg.Node.DBPath)
	if err != nil {
		return fmt.Errorf("open block storage: %w", err)
	}

	knownPeers := peer.NewSet()
	for _, pr := range cfg.Node.Peers {
		ws, httpURL, found := strings.Cut(pr, "|")
		if !found {
			return fmt.Errorf("peer %q must be a ws-url|http-url pair", pr)
		}
		knownPeers.Add(peer.New(ws, httpURL))
	}

	evts := events.New()
	evts.Subscribe(func(event events.Event) {
		log.Infow("chain event", "event", event.Name, "data", event.Data)
	})

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
	}

	st, err := state.New(state.Config{
		Genesis:    gen,
		Storage:    storage,
		KnownPeers: knownPeers,
		Events:     evts,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// /////////////////////////////////////////////////////////////////
	// Gossip Support

	g := gossip.New(gossip.Config{
		Handler:    st,
		KnownPeers: knownPeers,
		EvHandler:  ev,
	})

	st.RegisterPush(g.Push)

	// The diagnostic toggle suppresses tx/block ingestion while an
	// operator inspects the node. Outbound broadcast keeps running.
	gossipMux := http.NewServeMux()
	gossipMux.HandleFunc("/", g.Websocket)
	gossipMux.HandleFunc("/stop-incoming", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		g.StopIncoming(r.URL.Query().Get("enabled") == "true")
		fmt.Fprintf(w, "{\"stopped\":%t}\n", g.IncomingStopped())
	})

	gossipServer := http.Server{
		Addr:     cfg.Gossip.Host,
		Handler:  gossipMux,
		ErrorLog: zap.NewStdLog(log.Desugar()),
	}

	serverErrors := make(chan error, 2)

	go func() {
		log.Infow("startup", "status", "gossip server started", "host", gossipServer.Addr)
		serverErrors <- gossipServer.ListenAndServe()
	}()

	g.Start()
	defer g.Shutdown()

	// Catch up with the network right away rather than waiting for the
	// first watchdog tick.
	st.SignalSync()

	// /////////////////////////////////////////////////////////////////
	// Start Public Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	log.Infow("startup", "status", "initializing public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("couldn't stop public service gracefully: %w", err)
		}

		if err := gossipServer.Shutdown(ctx); err != nil {
			gossipServer.Close()
			return fmt.Errorf("couldn't stop gossip server gracefully: %w", err)
		}
	}

	return nil
}

// loadOrCreateKey loads the node's ECDSA identity from the keys folder,
// generating and saving one on first start.
func loadOrCreateKey(folder string, name string) (*ecdsa.PrivateKey, error) {
	path := filepath.Join(folder, name+".ecdsa")

	if _, err := os.Stat(path); err == nil {
		return crypto.LoadECDSA(path)
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, err
	}

	return privateKey, nil
}
