// This program performs offline administrative tasks against a ledger
// directory. The node must be stopped while it runs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/goldchain/app/tooling/admin/commands"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/logger"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const (
	ledgerDir   = "zblock/ledger"
	accountsDir = "zblock/accounts/"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
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
	if len(os.Args) < 2 {
		return errors.New("usage: admin bals [name] | trans <id> | blocks [from] [to]")
	}

	log.Infow("startup", "version", build, "ledger", ledgerDir)

	store, err := storage.Open(storage.Config{
		Dir: ledgerDir,
		EvHandler: func(v string, args ...any) {
			log.Infow(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		if errors.Is(err, storage.ErrReindexRequired) {
			return fmt.Errorf("%w: start the node with --state-reindex", err)
		}
		return err
	}
	defer store.Close()

	ns, err := nameservice.New(accountsDir)
	if err != nil {
		return err
	}

	return processCommands(os.Args, store, ns)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, store *storage.Store, ns *nameservice.NameService) error {
	switch args[1] {
	case "bals":
		if err := commands.Balances(args, store, ns); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transaction(args, store, ns); err != nil {
			return fmt.Errorf("getting transaction: %w", err)
		}
	case "blocks":
		if err := commands.Blocks(args, store); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
