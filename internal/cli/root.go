package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/Vigil/internal/config"
	"github.com/turtacn/Vigil/internal/control"
	"github.com/turtacn/Vigil/internal/daemon"
	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/logger"
	"github.com/turtacn/Vigil/pkg/protocol"
)

var (
	cfgFile    string
	socketPath string
	jsonOutput bool
	activeFlag string
	idleFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "vigil",
	Short:         "Vigil: launches a companion process while trigger processes run",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the monitor daemon in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		d, err := daemon.New(path)
		if err != nil {
			return err
		}

		obs := d.Config().Observability
		logger.InitLogger(obs.LogLevel, obs.LogFormat)
		logger.Log.Info("Booting Vigil monitor...", "config", path)

		return d.Run(context.Background())
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [duration|indefinite]",
	Short: "Suspend monitoring for a duration (e.g. 15s, 1m, 1h, 6h) or until unpaused",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := control.Request{Command: control.CmdPause}
		if len(args) == 1 {
			if _, _, err := control.ParsePauseDuration(args[0]); err != nil {
				return err
			}
			req.Duration = args[0]
		}
		return send(cmd.OutOrStdout(), req)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume monitoring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd.OutOrStdout(), control.Request{Command: control.CmdUnpause})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pause state, companion state and live configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd.OutOrStdout(), control.Request{Command: control.CmdStatus})
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the daemon's config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd.OutOrStdout(), control.Request{Command: control.CmdReload})
	},
}

var intervalsCmd = &cobra.Command{
	Use:   "intervals",
	Short: "Change the poll intervals of the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if activeFlag == "" && idleFlag == "" {
			return fmt.Errorf("at least one of --active or --idle is required")
		}
		return send(cmd.OutOrStdout(), control.Request{
			Command: control.CmdIntervals,
			Active:  activeFlag,
			Idle:    idleFlag,
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a config file without starting the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no config file given")
		}
		_, snap, err := config.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: OK\n", path)
		fmt.Fprintf(out, "  triggers:        %s\n", strings.Join(snap.Triggers(), ", "))
		fmt.Fprintf(out, "  active interval: %s\n", snap.ActiveInterval())
		fmt.Fprintf(out, "  idle interval:   %s\n", snap.IdleInterval())
		fmt.Fprintf(out, "  companion:       %s\n", orNone(snap.CompanionPath()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $"+consts.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "control socket path (default from config, $"+consts.EnvControlSocket+", or temp dir)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON responses")

	intervalsCmd.Flags().StringVar(&activeFlag, "active", "", "interval while the companion runs, e.g. 5s")
	intervalsCmd.Flags().StringVar(&idleFlag, "idle", "", "interval while it does not, e.g. 15s")

	rootCmd.AddCommand(startCmd, pauseCmd, unpauseCmd, statusCmd, reloadCmd, intervalsCmd, validateCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv(consts.EnvConfigPath)
}

// resolveSocket picks the --socket flag, else the socket named by the
// config file, else the default.
func resolveSocket() string {
	if socketPath != "" {
		return socketPath
	}
	var cfg *protocol.Config
	if path := configPath(); path != "" {
		if c, err := config.LoadFile(path); err == nil {
			cfg = c
		}
	}
	return daemon.SocketPath(cfg)
}

func send(out io.Writer, req control.Request) error {
	resp, err := control.Send(resolveSocket(), req, consts.DefaultControlTimeout)
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printStatus(out, resp.Status)
	return nil
}

func printStatus(out io.Writer, st *control.Status) {
	if st == nil {
		return
	}
	pauseLine := st.Pause
	if st.PausedUntil != "" {
		pauseLine += " until " + st.PausedUntil
	}
	companion := st.Companion
	if st.Session != "" {
		companion += " (session " + st.Session + ")"
	}
	fmt.Fprintf(out, "monitor:   %s\n", pauseLine)
	fmt.Fprintf(out, "companion: %s\n", companion)
	fmt.Fprintf(out, "triggers:  %s\n", orNone(strings.Join(st.Triggers, ", ")))
	fmt.Fprintf(out, "intervals: active %s, idle %s\n", st.ActiveInterval, st.IdleInterval)
	fmt.Fprintf(out, "path:      %s\n", orNone(st.CompanionPath))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Personal.AI order the ending
