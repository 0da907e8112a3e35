package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taepop/chingoo-sub000/pkg/chat"
	"github.com/taepop/chingoo-sub000/pkg/config"
	"github.com/taepop/chingoo-sub000/pkg/llm"
	"github.com/taepop/chingoo-sub000/pkg/memory"
	"github.com/taepop/chingoo-sub000/pkg/persona"
	"github.com/taepop/chingoo-sub000/pkg/postproc"
	"github.com/taepop/chingoo-sub000/pkg/relationship"
	"github.com/taepop/chingoo-sub000/pkg/routing"
	"github.com/taepop/chingoo-sub000/pkg/search"
	"github.com/taepop/chingoo-sub000/pkg/store"
)

// generatorRewriter adapts the LLM generator to the quality-gate rewrite
// hook, flattening violation names into plain problem strings.
type generatorRewriter struct {
	gen llm.Generator
}

func (r generatorRewriter) Rewrite(ctx context.Context, draft string, violations []postproc.Violation) (string, error) {
	problems := make([]string, len(violations))
	for i, v := range violations {
		problems[i] = string(v)
	}
	return r.gen.RewriteForQuality(ctx, draft, problems)
}

func buildService(st *store.SQLiteStore, gen llm.Generator) (*chat.Service, *memory.Persister) {
	idx := search.NewLocal()
	persister := memory.NewPersister(st, idx, time.Now)
	svc := chat.NewService(chat.Deps{
		Store:     st,
		Generator: gen,
		Index:     idx,
		Surfacer:  memory.NewSurfacer(st),
		Persister: persister,
		Corrector: memory.NewCorrector(st, idx, time.Now),
		Updater:   relationship.NewUpdater(st, time.Now),
		Processor: postproc.NewProcessor(st, generatorRewriter{gen: gen}),
	})
	return svc, persister
}

func newChatCommand() *cobra.Command {
	var (
		userID    string
		friendID  string
		message   string
		retention bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a local chat session against the turn pipeline",
		Long: "Run an interactive local session or send a one-shot message. " +
			"New users start in onboarding and activate after their first turn.",
		Example: strings.Join([]string{
			"  chingoo chat --user u-123",
			"  chingoo chat --user u-123 --message \"i love kimchi stew\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
				return fmt.Errorf("CHINGOO_OPENAI_API_KEY is required for chat")
			}

			st, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			user, err := st.EnsureUser(ctx, userID)
			if err != nil {
				return err
			}
			if user.State == string(routing.StateCreated) {
				if err := st.SetUserState(ctx, userID, string(routing.StateOnboarding)); err != nil {
					return err
				}
			}

			// First contact with this friend freezes a persona for the pair.
			if _, found, err := st.GetAssignment(ctx, userID, friendID); err != nil {
				return err
			} else if !found {
				if _, err := persona.NewAssigner(st, time.Now).Assign(ctx, userID, friendID); err != nil {
					return fmt.Errorf("assign persona: %w", err)
				}
			}

			gen := llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
			svc, persister := buildService(st, gen)
			conversationID := userID + ":" + friendID

			// The vector index is in-process; rebuild it from stored memories.
			if _, err := persister.Reindex(ctx, userID, friendID); err != nil {
				return err
			}

			if strings.TrimSpace(message) != "" {
				return runTurn(ctx, svc, chat.TurnInput{
					UserID:          userID,
					FriendID:        friendID,
					ConversationID:  conversationID,
					ClientMessageID: uuid.NewString(),
					Text:            message,
					IsRetention:     retention,
				})
			}

			fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", appName)
			return interactiveMode(ctx, svc, userID, friendID, conversationID)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&friendID, "friend", "f", "default", "Friend id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send")
	cmd.Flags().BoolVar(&retention, "retention", false, "Mark the one-shot turn as a retention nudge")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runTurn(ctx context.Context, svc *chat.Service, in chat.TurnInput) error {
	res, err := svc.ProcessTurn(ctx, in)
	if err != nil {
		return err
	}
	printTurn(res)
	return nil
}

func printTurn(res chat.TurnResult) {
	if res.RequiresCrisisFlow {
		fmt.Println("⚠ crisis resources flow triggered")
	}
	fmt.Printf("\n%s %s\n\n", appName, res.Content)
}

func interactiveMode(ctx context.Context, svc *chat.Service, userID, friendID, conversationID string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s You: ", appName),
		HistoryFile:     filepath.Join(os.TempDir(), ".chingoo_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		res, err := svc.ProcessTurn(ctx, chat.TurnInput{
			UserID:          userID,
			FriendID:        friendID,
			ConversationID:  conversationID,
			ClientMessageID: uuid.NewString(),
			Text:            input,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printTurn(res)
	}
}
