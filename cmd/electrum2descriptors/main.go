package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/schulterklopfer/electrum2descriptors/pkg/electrum"
)

func main() {
	app := &cli.App{
		Name:      "electrum2descriptors",
		Usage:     "convert electrum extended keys and wallet files to output descriptors",
		ArgsUsage: "<extended key or wallet file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "keep-order",
				Usage: "emit multi(...) with keystore order preserved instead of sortedmulti(...)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: convert,
	}

	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func convert(ctx *cli.Context) error {
	if ctx.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if ctx.NArg() != 1 {
		return fmt.Errorf("an extended public or private key or an electrum wallet file is required as first argument")
	}
	arg := ctx.Args().First()

	pair, err := electrum.KeyToDescriptors(arg)
	if err != nil {
		log.WithError(err).Debug("input is not an extended key, trying wallet file")
		data, ferr := os.ReadFile(arg)
		if ferr != nil {
			return fmt.Errorf("%q is not an extended key (%v) and not a readable wallet file (%v)", arg, err, ferr)
		}
		var wallet electrum.WalletFile
		if err := json.Unmarshal(data, &wallet); err != nil {
			return err
		}
		log.WithField("wallet_type", wallet.WalletType).Debug("parsed wallet file")
		if pair, err = wallet.ToDescriptors(ctx.Bool("keep-order")); err != nil {
			return err
		}
	}

	out, err := json.Marshal(pair.Strings())
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
