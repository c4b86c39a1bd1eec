package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/device"
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/simulator"

	"github.com/spf13/cobra"
)

var (
	simAddr     string
	simSetpoint float64
	simTick     time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve an emulated heat pump controller for local runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The simulator only needs the device section; the rest of the
		// configuration may still point at a real installation.
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log := logger.Configure(cfg.Log.Level, cfg.Log.Format)
		fw, err := device.LookupFirmware(cfg.Device.Firmware)
		if err != nil {
			return err
		}
		addr := simAddr
		if addr == "" {
			addr = net.JoinHostPort("", strconv.Itoa(cfg.Device.Port))
		}

		d := simulator.New(simulator.Options{
			LoginCode: cfg.Device.LoginCode,
			Firmware:  fw,
			Setpoint:  simSetpoint,
		}, log.Named("sim"))
		ctx := cmd.Context()
		go d.Run(ctx, simTick)
		if err := d.ListenAndServe(ctx, addr); err != nil {
			return fmt.Errorf("simulator: %w", err)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simAddr, "addr", "", "listen address (default :<device.port>)")
	simulateCmd.Flags().Float64Var(&simSetpoint, "setpoint", 50, "initial tap water setpoint in °C")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "thermal model step")
}
