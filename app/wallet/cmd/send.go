package cmd

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
	fee    string
	memo   string
	expiry time.Duration
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		kp, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		dest, err := resolve(to)
		if err != nil {
			log.Fatal(err)
		}

		value, err := asset.Parse(amount)
		if err != nil {
			log.Fatal(err)
		}

		body := tx.Transfer{
			From:   script.AddressOf(kp.Public),
			To:     dest,
			Script: script.FromPublicKey(kp.Public),
			Amount: value,
			Memo:   memo,
		}

		submit(kp, body)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address or account name to send to.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.MarkFlagRequired("amount")
	sendCmd.Flags().StringVarP(&memo, "memo", "m", "", "Memo attached to the transfer.")
	addTxFlags(sendCmd)
}

// addTxFlags registers the flags shared by every transaction command.
func addTxFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&fee, "fee", "f", "", "Fee to pay, the network fee when empty.")
	cmd.Flags().DurationVarP(&expiry, "expiry", "e", time.Minute, "Time until the transaction expires.")
}

// submit signs the body with the key and broadcasts it to the node.
func submit(kp signature.KeyPair, body tx.Body) {
	gen, err := loadGenesis()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := dial(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	txFee, err := resolveFee(ctx, client, kp)
	if err != nil {
		log.Fatal(err)
	}

	trx, err := tx.New(nonce(), uint64(time.Now().Add(expiry).Unix()), txFee, body)
	if err != nil {
		log.Fatal(err)
	}

	if err := trx.Sign(gen.Chain(), kp); err != nil {
		log.Fatal(err)
	}

	id, err := client.Broadcast(ctx, trx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Submitted:", id)
}

func resolveFee(ctx context.Context, client *peer.Client, kp signature.KeyPair) (asset.Asset, error) {
	if fee != "" {
		return asset.Parse(fee)
	}

	info, err := client.AddressInfo(ctx, script.AddressOf(kp.Public))
	if err != nil {
		return 0, fmt.Errorf("network fee: %w", err)
	}

	return info.NetworkFee, nil
}

func nonce() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		log.Fatal(err)
	}
	return binary.BigEndian.Uint32(b[:])
}
