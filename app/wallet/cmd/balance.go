package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var balanceOf string

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		var addr signature.ScriptHash
		switch balanceOf {
		case "":
			kp, err := loadAccount()
			if err != nil {
				log.Fatal(err)
			}
			addr = script.AddressOf(kp.Public)

		default:
			var err error
			if addr, err = resolve(balanceOf); err != nil {
				log.Fatal(err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		client, err := dial(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		info, err := client.AddressInfo(ctx, addr)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("For Address:", info.Address)
		fmt.Println("Balance:    ", info.Balance)
		fmt.Println("Network fee:", info.NetworkFee)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVar(&balanceOf, "of", "", "Address or account name to query instead of the wallet.")
}
