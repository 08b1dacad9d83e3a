package main

import "github.com/ardanlabs/goldchain/app/wallet/cmd"

func main() {
	cmd.Execute()
}
