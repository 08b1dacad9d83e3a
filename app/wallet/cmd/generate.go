package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run: func(cmd *cobra.Command, args []string) {
		path := getPrivateKeyPath()
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("%s already exists", path)
		}

		kp, err := signature.GenerateKeyPair()
		if err != nil {
			log.Fatal(err)
		}

		if err := os.MkdirAll(accountPath, 0755); err != nil {
			log.Fatal(err)
		}

		if err := kp.Save(path); err != nil {
			log.Fatal(err)
		}

		fmt.Println("Key:    ", path)
		fmt.Println("Address:", script.AddressOf(kp.Public))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
