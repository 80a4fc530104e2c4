package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"exifrec-go/internal/app"
	"exifrec-go/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an ExifrecApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "scan", "apply").
func newApp(cmd *cobra.Command, operation string) (*app.ExifrecApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if moved, _ := cmd.Flags().GetBool("match-moved"); moved {
		cfg.Reconcile.MatchMoved = true
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewExifrecApp(cmd.Context(), cfg, operation, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func scanOptions(cmd *cobra.Command) app.ScanOptions {
	recursive, _ := cmd.Flags().GetBool("recursive")
	force, _ := cmd.Flags().GetBool("force")
	filter, _ := cmd.Flags().GetString("filter")
	return app.ScanOptions{Recursive: recursive, Force: force, Filter: filter}
}

var rootCmd = &cobra.Command{
	Use:          "exifrec",
	Short:        "Reconcile photo and video capture metadata",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])

		needs, err := app.NeedsKeySetup(cfg)
		if err != nil || !needs {
			return err
		}
		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Encryption keys written to %s\n", filepath.Dir(cfg.Encryption.PrivateKeyPath))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "Import files and propose metadata changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "scan")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Scan(cmd.Context(), targetArg(args), scanOptions(cmd))
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		printSummary(summary, false)
		if summary.Cancelled {
			return fmt.Errorf("scan cancelled")
		}
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check [PATH]",
	Short: "Report anomalies and proposed changes without storing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "check")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Check(cmd.Context(), targetArg(args), scanOptions(cmd))
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		printSummary(summary, true)
		return nil
	},
}

// review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Accept or reject proposed changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd, "review")
		if err != nil {
			return err
		}
		defer a.Close()

		if yes {
			committed, remaining, err := a.AcceptAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Committed %d change set(s); %d need manual review\n", committed, len(remaining))
			return nil
		}
		return runReview(cmd.Context(), a, newPrompter(os.Stdin, os.Stdout))
	},
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write accepted values back to the files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "apply")
		if err != nil {
			return err
		}
		defer a.Close()

		reports, err := a.Apply(cmd.Context())
		written, failed := 0, 0
		for _, r := range reports {
			switch {
			case r.Err != nil:
				failed++
				fmt.Printf("FAIL %s: %v\n", r.Path, r.Err)
			case r.Confirmed:
				written++
				fmt.Printf("ok   %s (%d tag(s))\n", r.Path, len(r.Writes))
			default:
				written++
				fmt.Printf("ok?  %s: written but not confirmed, rescan to check\n", r.Path)
			}
		}
		fmt.Printf("Wrote %d file(s), %d failed\n", written, failed)
		if err != nil {
			return fmt.Errorf("apply interrupted: %w", err)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log FILENAME",
	Short: "View the reconciliation history of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "log")
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.FileHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printHistory(h)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.Operations(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if !op.FinishedAt.IsZero() {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore FILENAME",
	Short: "Restore the original bytes of a rewritten file next to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, _ := cmd.Flags().GetString("hash")

		a, err := newApp(cmd, "restore")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.NeedsPassphrase() {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		out, err := a.RestoreOriginal(cmd.Context(), args[0], hash, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Restored original to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log everything to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	for _, c := range []*cobra.Command{scanCmd, checkCmd} {
		c.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
		c.Flags().String("filter", "", "Only process paths matching this regular expression")
	}
	scanCmd.Flags().BoolP("force", "f", false, "Re-read files whose content is unchanged")
	scanCmd.Flags().Bool("match-moved", false, "Let a file at a new path take over the history of a vanished file with the same content")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().BoolP("yes", "y", false, "Accept every entry that needs no manual review")
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().String("hash", "", "Content hash (prefix) of the backup to restore")
}
