package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var watchAll bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new blocks that touch the wallet",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		client, err := dial(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		var addr signature.ScriptHash
		if !watchAll {
			kp, err := loadAccount()
			if err != nil {
				log.Fatal(err)
			}
			addr = script.AddressOf(kp.Public)

			if err := client.SetBlockFilter(ctx, addr); err != nil {
				log.Fatal(err)
			}
		}

		if err := client.Subscribe(ctx); err != nil {
			log.Fatal(err)
		}

		for {
			select {
			case fb, ok := <-client.Pushes():
				if !ok {
					log.Fatal(client.Err())
				}
				if fb.Full == nil {
					fmt.Printf("block %d %s\n", fb.Header.Height, fb.Hash())
					continue
				}
				fmt.Printf("block %d %s: %d txs\n", fb.Header.Height, fb.Hash(), len(fb.Full.Txs))

			case <-ctx.Done():
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchAll, "all", false, "Print every block instead of those touching the wallet.")
}
