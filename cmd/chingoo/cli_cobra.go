package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taepop/chingoo-sub000/pkg/config"
	"github.com/taepop/chingoo-sub000/pkg/logger"
	"github.com/taepop/chingoo-sub000/pkg/persona"
	"github.com/taepop/chingoo-sub000/pkg/schedule"
	"github.com/taepop/chingoo-sub000/pkg/store"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "chingoo",
		Short: "Conversational companion backend with memory, personas, and safety routing",
		Long: strings.TrimSpace(`chingoo is a companion chat backend.

Use CLI commands to run local chat sessions, inspect or assign friend
personas, run the retention sweep, and check runtime readiness.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return logger.Setup(cfg.LogLevel, cfg.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newChatCommand())
	root.AddCommand(newPersonaCommand())
	root.AddCommand(newSweepCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  chingoo version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  chingoo status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Printf("%s Status\n", appName)
			fmt.Printf("Version: %s\n\n", formatVersion())

			if _, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Println("Database:", cfg.DBPath, "✓")
			} else {
				fmt.Println("Database:", cfg.DBPath, "not initialized")
			}
			fmt.Println("Log level:", cfg.LogLevel)
			fmt.Println("Maintenance schedule:", cfg.MaintenanceSchedule)

			status := func(ok bool) string {
				if ok {
					return "✓"
				}
				return "not set"
			}
			apiReady := strings.TrimSpace(cfg.OpenAIAPIKey) != ""
			fmt.Println("OpenAI API key:", status(apiReady))
			fmt.Println("Chat ready:", status(apiReady))
			return nil
		},
	}
}

func newPersonaCommand() *cobra.Command {
	var userID, friendID string

	cmd := &cobra.Command{
		Use:   "assign-persona",
		Short: "Assign or show the frozen persona for a user/friend pair",
		Long: "Assign a persona for the pair, respecting the anti-cloning window caps. " +
			"If the pair already has one, print it unchanged.",
		Example: "  chingoo assign-persona --user u-123 --friend f-1",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if existing, found, err := st.GetAssignment(ctx, userID, friendID); err != nil {
				return err
			} else if found {
				printAssignment(existing, "already assigned")
				return nil
			}

			a, err := persona.NewAssigner(st, time.Now).Assign(ctx, userID, friendID)
			if err != nil {
				return fmt.Errorf("assign persona: %w", err)
			}
			printAssignment(a, "assigned")
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&friendID, "friend", "f", "default", "Friend id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printAssignment(a persona.Assignment, verb string) {
	fmt.Printf("✓ Persona %s for %s/%s\n", verb, a.UserID, a.FriendID)
	fmt.Printf("  Template: %s\n", a.TemplateID)
	fmt.Printf("  Combo: %s\n", a.ComboKey.String())
	fmt.Printf("  Speech: %s  Humor: %s  Energy: %s\n",
		a.Style.SpeechStyle, a.Style.HumorMode, a.Style.FriendEnergy)
	fmt.Printf("  Length: %s  Emoji: %s  Directness: %s\n",
		a.Style.MessageLength, a.Style.EmojiFrequency, a.Style.Directness)
}

func newSweepCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the retention sweep (relationship decay + persona window trim)",
		Example: strings.Join([]string{
			"  chingoo sweep --once",
			"  chingoo sweep",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			sweeper, err := schedule.NewSweeper(st, schedule.Options{
				CronExpr:        cfg.MaintenanceSchedule,
				DecayAfter:      time.Duration(cfg.RelationshipDecayDays) * 24 * time.Hour,
				DecayStep:       cfg.RelationshipDecayStep,
				WindowRetention: time.Duration(cfg.PersonaWindowRetentionDays) * 24 * time.Hour,
			})
			if err != nil {
				return err
			}

			if once {
				return sweeper.RunOnce(cmd.Context())
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			fmt.Printf("✓ Sweep loop started (schedule: %s), Ctrl+C to stop\n", cfg.MaintenanceSchedule)
			if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			fmt.Println("\n✓ Sweep loop stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep immediately and exit")
	return cmd
}
