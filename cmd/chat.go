package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/confidant-ai/confidant/internal/audit"
	"github.com/confidant-ai/confidant/internal/chat"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
	"github.com/confidant-ai/confidant/internal/profile"
	"github.com/confidant-ai/confidant/internal/progress"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with confidant in the terminal",
	Long: `Starts an interactive terminal chat. Each message runs through the
full enrichment pipeline, updating your profile as you talk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := createProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating provider: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ctx := cmd.Context()

		profiles := profile.NewStore(database)
		if err := profiles.EnsureProfile(ctx, chatUserID, ""); err != nil {
			return fmt.Errorf("ensuring profile: %w", err)
		}

		runner := pipeline.NewRunner(provider, cfg.Model, profiles)
		runner.Audits = audit.NewStore(database)
		runner.PhaseTimeout = time.Duration(cfg.PhaseTimeoutSeconds) * time.Second
		if cfg.AdjustModelOrDefault() != cfg.Model {
			runner.Adjustor = pipeline.NewAdjustor(provider, cfg.AdjustModelOrDefault())
		}

		chats := chat.NewStore(database)
		titler := chat.NewTitler(provider, cfg.Model)

		fmt.Println("Chatting as", chatUserID+".", "Type 'exit' to quit.")
		fmt.Println()

		var session *chat.Chat
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			content := strings.TrimSpace(scanner.Text())
			if content == "" {
				continue
			}
			if content == "exit" || content == "quit" {
				break
			}

			if session == nil {
				session, err = chats.CreateChat(ctx, chatUserID, titler.Title(ctx, content))
				if err != nil {
					return fmt.Errorf("creating chat: %w", err)
				}
			}

			history, err := loadHistory(ctx, chats, session.ID)
			if err != nil {
				return err
			}
			if _, err := chats.AddMessage(ctx, session.ID, "user", content); err != nil {
				return fmt.Errorf("saving message: %w", err)
			}

			reporter := progress.NewReporter()
			reporter.Start()
			result, err := runner.Run(ctx, pipeline.Request{
				UserID:  chatUserID,
				ChatID:  session.ID,
				Content: content,
				History: history,
			}, func(event pipeline.Event) error {
				reporter.Phase(event)
				return nil
			})
			reporter.Finish()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}

			if _, err := chats.AddMessage(ctx, session.ID, "assistant", result.Response); err != nil {
				return fmt.Errorf("saving reply: %w", err)
			}

			fmt.Println()
			fmt.Println(result.Response)
			fmt.Println()
		}

		return scanner.Err()
	},
}

func loadHistory(ctx context.Context, chats *chat.Store, chatID string) ([]pipeline.Turn, error) {
	stored, err := chats.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	var history []pipeline.Turn
	for _, m := range stored {
		history = append(history, pipeline.Turn{Role: llm.Role(m.Role), Content: m.Content})
	}
	return history, nil
}

func init() {
	chatCmd.Flags().StringVarP(&chatUserID, "user", "u", "local", "user ID to chat as")
	rootCmd.AddCommand(chatCmd)
}
