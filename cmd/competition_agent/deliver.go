package main

import (
	"github.com/spf13/cobra"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Broadcast every eligible undelivered competition",
	Long: `Selects records that have a poster, are not yet delivered and whose registration has not
closed, then sends each to every configured channel. A record is marked delivered only when
all channels accepted it.`,
	Args: cobra.NoArgs,
	RunE: runDeliver,
}

func init() {
	rootCmd.AddCommand(deliverCmd)
}

func runDeliver(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.deliverer()
	if err != nil {
		return err
	}
	res, err := d.Run(ctx)
	a.printer.PrintDelivery(res)
	return err
}
