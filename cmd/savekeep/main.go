package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"savekeep/internal/app"
	"savekeep/internal/config"
	"savekeep/internal/sk"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an SKApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateBackup", "Status").
func newApp(operation string) (*app.SKApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewSKApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "savekeep",
	Short:        "Named backups for game save profiles",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if v, _ := cmd.Flags().GetString("saves"); v != "" {
			cfg.Saves.Root = v
		}
		if v, _ := cmd.Flags().GetString("backups"); v != "" {
			cfg.Backups.Root = v
		}
		if v, _ := cmd.Flags().GetString("flag"); v != "" {
			cfg.Flag.Path = v
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		if err := cfg.Validate(); err != nil {
			fmt.Printf("%s edit the file before use: %v\n", yellow("Incomplete:"), err)
		}
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
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Saves:       %s (*%s%s)\n", cfg.Saves.Root, cfg.Saves.ModeSuffix, cfg.Saves.Extension)
		fmt.Printf("Backups:     %s\n", cfg.Backups.Root)
		fmt.Printf("Flag File:   %s\n", cfg.Flag.Path)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Debounce:    %s\n", cfg.Watch.Debounce())
		if cfg.Extractor.Command != "" {
			fmt.Printf("Extractor:   %s %v\n", cfg.Extractor.Command, cfg.Extractor.Args)
		}
		return nil
	},
}

// profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List save profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Profiles")
		if err != nil {
			return err
		}
		defer a.Close()

		profiles, err := a.Profiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}
		printProfiles(os.Stdout, profiles)
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage a profile",
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename PROFILE NAME",
	Short: "Set a profile's character name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RenameProfile")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.RenameProfile(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("renaming profile: %w", err)
		}
		fmt.Printf("%s is now %s\n", gray(p.ID), cyan(p.CharacterName))
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list [PROFILE]",
	Short: "List snapshots",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizes, _ := cmd.Flags().GetBool("size")

		a, err := newApp("ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		key := ""
		if len(args) > 0 {
			key = args[0]
		}
		snaps, err := a.Snapshots(cmd.Context(), key)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		var sizeOf func(id string) (int64, error)
		if sizes {
			sizeOf = a.SnapshotSize
		}
		printSnapshots(os.Stdout, snaps, sizeOf)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup PROFILE LABEL",
	Short: "Back up a profile under a label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		a, err := newApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.CreateBackup(cmd.Context(), args[0], args[1], overwrite)
		if err != nil {
			var dup *sk.DuplicateLabelError
			if errors.As(err, &dup) {
				return fmt.Errorf("%w (use --overwrite to replace it)", err)
			}
			return fmt.Errorf("backup failed: %w", err)
		}

		for _, w := range res.Warnings {
			fmt.Printf("%s %s\n", yellow("Warning:"), w)
		}
		fmt.Printf("%s %s %s\n", green("Backed up"), res.Snapshot.DisplayLabel(), gray(res.Snapshot.ID))
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore PROFILE SNAPSHOT",
	Short: "Restore a snapshot over a profile's live save",
	Long: `Restore replaces the live save directory of PROFILE with SNAPSHOT,
which is a snapshot id or label. The live save is lost unless it was backed up.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		interactive := app.IsInteractive(os.Stdin)

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		p, snap, err := a.ResolveSnapshot(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if !yes {
			if !interactive {
				return fmt.Errorf("restore needs --yes: %w", app.ErrNotInteractive)
			}
			question := fmt.Sprintf("Replace the live save of %s with %s?", p.DisplayName(), snap.DisplayLabel())
			ok, err := app.Confirm(os.Stdin, os.Stdout, question)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Restore cancelled.")
				return nil
			}
		}

		decide := func(problem error) bool {
			if !interactive {
				return false
			}
			ok, err := app.Confirm(os.Stdin, os.Stdout, fmt.Sprintf("%v. Keep the restored save anyway?", problem))
			return err == nil && ok
		}

		restored, err := a.Restore(cmd.Context(), p.ID, snap.ID, true, decide)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("%s %s into %s\n", green("Restored"), restored.DisplayLabel(), p.DisplayName())
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete SNAPSHOT_ID",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteSnapshot(args[0]); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted %s\n", gray(args[0]))
		return nil
	},
}

// label command
var labelCmd = &cobra.Command{
	Use:   "label SNAPSHOT_ID LABEL",
	Short: "Change a snapshot's label",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RelabelSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.RelabelSnapshot(args[0], args[1])
		if err != nil {
			return fmt.Errorf("relabel failed: %w", err)
		}
		fmt.Printf("Relabeled %s as %s\n", gray(snap.ID), snap.DisplayLabel())
		return nil
	},
}

// quicksave and quickrestore never fail the process; a hotkey binding has
// nowhere to show an exit status.
var quicksaveCmd = &cobra.Command{
	Use:   "quicksave [PROFILE]",
	Short: "Overwrite a profile's quicksave",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QuickSave")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.QuickSave(cmd.Context(), optionalArg(args))
		if err != nil {
			a.Logger().Error("quicksave failed", "error", err)
			return nil
		}
		fmt.Printf("%s %s\n", green("Quicksaved"), gray(snap.StorageFolderName))
		return nil
	},
}

var quickrestoreCmd = &cobra.Command{
	Use:   "quickrestore [PROFILE]",
	Short: "Restore a profile's quicksave",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("QuickRestore")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.QuickRestore(cmd.Context(), optionalArg(args))
		if err != nil {
			a.Logger().Error("quick restore failed", "error", err)
			return nil
		}
		if snap == nil {
			fmt.Println("No quicksave to restore.")
			return nil
		}
		fmt.Printf("%s %s\n", green("Restored"), gray(snap.StorageFolderName))
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the restoration state of every profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		showMarks, _ := cmd.Flags().GetBool("marks")

		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		if showMarks {
			marks, err := a.Marks()
			if err != nil {
				return err
			}
			if len(marks) == 0 {
				fmt.Println("No restores recorded.")
				return nil
			}
			printMarks(os.Stdout, marks)
			return nil
		}

		statuses, err := a.Status(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}
		printStatus(os.Stdout, statuses)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track the save directory and serve quicksave signals",
	Long: `Watch reprints profile status whenever the save directory changes.
On Unix, SIGUSR1 quicksaves and SIGUSR2 quick-restores the watched profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")

		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching (pid %d). Press Ctrl-C to stop.\n", os.Getpid())
		return a.Watch(ctx, profile, func(statuses []*app.ProfileStatus) {
			fmt.Printf("\n%s\n", gray(time.Now().Format(sk.DisplayTimeFormat)))
			printStatus(os.Stdout, statuses)
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			status := op.Status
			if status == app.StatusError {
				status = red(status)
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format(sk.DisplayTimeFormat),
				status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("saves", "", "Save root containing the profile folders")
	configInitCmd.Flags().String("backups", "", "Backup root")
	configInitCmd.Flags().String("flag", "", "Flag file copied alongside every backup")

	// profile subcommands
	profileCmd.AddCommand(profileRenameCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolP("size", "s", false, "Show the on-disk size of each snapshot")
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolP("overwrite", "f", false, "Replace an existing snapshot with the same label")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolP("yes", "y", false, "Restore without asking for confirmation")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(quicksaveCmd)
	rootCmd.AddCommand(quickrestoreCmd)
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("marks", "m", false, "List the last recorded restore of every profile")
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringP("profile", "p", "", "Profile served by the quicksave signals (default: most recently played)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
