package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/signal"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Signal the run in this project to abort",
	Long: `Create the cancel signal file in .weft/signals. A run watching this
project aborts as soon as it sees the signal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := projectWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.SendCancel(); err != nil {
			return fmt.Errorf("send cancel signal: %w", err)
		}
		fmt.Printf("%s Cancel signal sent\n", color.YellowString("⚠"))
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Hold new task dispatches for the run in this project",
	Long: `Create the pause signal file in .weft/signals. Tasks already in
flight finish; no new task starts until 'weft resume'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := projectWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.SendPause(); err != nil {
			return fmt.Errorf("send pause signal: %w", err)
		}
		fmt.Printf("%s Pause signal sent\n", color.YellowString("⚠"))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Clear the pause signal so dispatch continues",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := projectWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.ClearPause(); err != nil {
			return fmt.Errorf("clear pause signal: %w", err)
		}
		fmt.Printf("%s Pause signal cleared\n", color.GreenString("✓"))
		return nil
	},
}

func projectWatcher() (*signal.Watcher, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return signal.New(cwd)
}
