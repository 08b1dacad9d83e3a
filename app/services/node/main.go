package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/goldchain/app/services/node/handlers"
	"github.com/ardanlabs/goldchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/worker"
	"github.com/ardanlabs/goldchain/foundation/events"
	"github.com/ardanlabs/goldchain/foundation/logger"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
	"github.com/ardanlabs/goldchain/foundation/ws"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			Origins         []string      `conf:"default:*"`
		}
		State struct {
			Genesis        string        `conf:"default:zblock/genesis.json"`
			DBPath         string        `conf:"default:zblock/ledger"`
			CacheSize      int           `conf:"default:256"`
			SelectStrategy string        `conf:"default:fee"`
			Role           string        `conf:"default:minter,help:minter or follower"`
			MinterName     string        `conf:"default:minter"`
			OwnerNames     []string      `conf:"default:owner"`
			Upstream       string        `conf:"help:peer websocket url of the minter used by followers"`
			Reindex        bool          `conf:"default:false"`
			MintInterval   time.Duration `conf:"default:3s"`
			ExpireInterval time.Duration `conf:"default:10s"`
		}
		Peer struct {
			QueueSize         int           `conf:"default:64"`
			HeartbeatInterval time.Duration `conf:"default:5s"`
			HeartbeatTimeout  time.Duration `conf:"default:15s"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "gold backed ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for addresses. The
	// names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for addr, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", addr)
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.State.Genesis)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// A follower holds no keys and replicates from an upstream minter.
	var minter *signature.KeyPair
	var owners []signature.KeyPair
	switch cfg.State.Role {
	case "minter":
		kp, err := loadKey(cfg.NameService.Folder, cfg.State.MinterName)
		if err != nil {
			return fmt.Errorf("unable to load minter key: %w", err)
		}
		minter = &kp

		for _, name := range cfg.State.OwnerNames {
			kp, err := loadKey(cfg.NameService.Folder, name)
			if err != nil {
				return fmt.Errorf("unable to load owner key: %w", err)
			}
			owners = append(owners, kp)
		}

	case "follower":

	default:
		return fmt.Errorf("unknown node role %q", cfg.State.Role)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. For now, these raw messages are sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The peer set holds the connections subscribed to new blocks.
	subs := peer.NewSet()

	// The state value represents the ledger node and manages the block store
	// and provides an API for application support.
	st, err := state.New(state.Config{
		Genesis: gen,
		Storage: storage.Config{
			Dir:       cfg.State.DBPath,
			CacheSize: cfg.State.CacheSize,
			EvHandler: storage.EventHandler(ev),
		},
		Minter:         minter,
		OwnerKeys:      owners,
		SelectStrategy: cfg.State.SelectStrategy,
		Subscribers:    subs,
		Reindex:        cfg.State.Reindex,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	if !st.IsMinter() && cfg.State.Upstream == "" {
		log.Infow("startup", "status", "follower without upstream, serving local chain only")
	}

	// The worker package implements the different workflows such as minting,
	// mempool expiry and replication from the minter. The worker will register
	// itself with the state.
	worker.Run(st, worker.Config{
		MintInterval:   cfg.State.MintInterval,
		ExpireInterval: cfg.State.ExpireInterval,
		Upstream:       cfg.State.Upstream,
		Dial: func(ctx context.Context, url string) (peer.Transport, error) {
			return ws.Dial(ctx, url)
		},
		EvHandler: ev,
	})

	// Peer connections are hijacked from the http server so they are ended by
	// cancelling this context.
	peerCtx, cancelPeers := context.WithCancel(context.Background())
	defer cancelPeers()

	peerCfg := peer.Config{
		QueueSize:         cfg.Peer.QueueSize,
		HeartbeatInterval: cfg.Peer.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Peer.HeartbeatTimeout,
		EvHandler:         peer.EventHandler(ev),
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
		Peers:    subs,
		PeerCfg:  peerCfg,
		PeerCtx:  peerCtx,
		Origins:  cfg.Web.Origins,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Peers:    subs,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()
		cancelPeers()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

func loadKey(folder string, name string) (signature.KeyPair, error) {
	return signature.LoadKeyPair(filepath.Join(folder, name+".ecdsa"))
}
