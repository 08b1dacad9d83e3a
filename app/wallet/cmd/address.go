package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/spf13/cobra"
)

var showPrivate bool

// addressCmd represents the address command
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print address for the specific wallet",
	Run: func(cmd *cobra.Command, args []string) {
		kp, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("Address:   ", script.AddressOf(kp.Public))
		fmt.Println("Public key:", kp.Public)
		if showPrivate {
			fmt.Println("Private:   ", kp.PrivateWIF())
		}
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVar(&showPrivate, "private", false, "Print the private key in wif form.")
}
