package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/darve-social/darve-server/build"
)

// commands holds the flag-populated Config cobra.Command.Run closures
// close over, the same shape as the teacher's cmd/rivined commands struct
// generalized from a blockchain daemon's network/module flags down to this
// backend's persist-dir/API-addr/sweep-interval knobs.
type commands struct {
	cfg Config
}

func (c *commands) startCommand(*cobra.Command, []string) {
	if err := runDaemon(c.cfg); err != nil {
		fmt.Fprintln(os.Stderr, "daemon failed:", err)
		os.Exit(1)
	}
}

func (c *commands) versionCommand(*cobra.Command, []string) {
	fmt.Printf("darveserverd v%s\n", build.Version.String())
	fmt.Println()
	fmt.Printf("Go Version   v%s\n", runtime.Version()[2:])
	fmt.Printf("GOOS         %s\n", runtime.GOOS)
	fmt.Printf("GOARCH       %s\n", runtime.GOARCH)
}

func newRootCommand() *cobra.Command {
	cmds := &commands{cfg: DefaultConfig()}

	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "darveserverd is the daemon for the darve-server backend",
		Long:  "darveserverd starts the ledger, wallet registry, gateway, task-reward, notification, and access components behind an HTTP/websocket API.",
		Run:   cmds.startCommand,
	}

	root.Flags().StringVar(&cmds.cfg.PersistDir, "persist-dir", cmds.cfg.PersistDir, "directory to store the bolt-backed database in")
	root.Flags().StringVarP(&cmds.cfg.APIAddr, "api-addr", "a", cmds.cfg.APIAddr, "address to serve the HTTP/websocket API on")
	root.Flags().StringVar(&cmds.cfg.SweepInterval, "sweep-interval", cmds.cfg.SweepInterval, "how often the task-reward sweeper scans for due tasks")
	root.Flags().IntVar(&cmds.cfg.SweepBatch, "sweep-batch", cmds.cfg.SweepBatch, "max due tasks finalized per sweep tick")
	root.Flags().StringVar(&cmds.cfg.UserIDHeader, "user-id-header", cmds.cfg.UserIDHeader, "header the default Identity implementation trusts for the caller's user ID")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   cmds.versionCommand,
	})

	return root
}
