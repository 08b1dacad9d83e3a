package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/spf13/cobra"
)

var (
	mintTo     string
	mintAmount string
	attachment string
)

// mintCmd represents the mint command
var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Issue new units, signed by an owner key",
	Run: func(cmd *cobra.Command, args []string) {
		kp, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		gen, err := loadGenesis()
		if err != nil {
			log.Fatal(err)
		}

		ownerScript, err := gen.Owner.Script()
		if err != nil {
			log.Fatal(err)
		}

		dest, err := resolve(mintTo)
		if err != nil {
			log.Fatal(err)
		}

		value, err := asset.Parse(mintAmount)
		if err != nil {
			log.Fatal(err)
		}

		body := tx.Mint{
			To:     dest,
			Amount: value,
			Script: ownerScript,
		}

		if attachment != "" {
			data, err := os.ReadFile(attachment)
			if err != nil {
				log.Fatal(err)
			}
			body.Attachment = data
			body.AttachmentName = filepath.Base(attachment)
		}

		submit(kp, body)
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintCmd.Flags().StringVarP(&mintTo, "to", "t", "", "Address or account name receiving the units.")
	mintCmd.MarkFlagRequired("to")
	mintCmd.Flags().StringVarP(&mintAmount, "amount", "v", "", "Amount to issue.")
	mintCmd.MarkFlagRequired("amount")
	mintCmd.Flags().StringVar(&attachment, "attachment", "", "File attached to the mint, such as an assay certificate.")
	addTxFlags(mintCmd)
}
