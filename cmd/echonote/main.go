package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/echonote/internal/profile"
	"github.com/hrygo/echonote/plugin/ai"
	"github.com/hrygo/echonote/server/retrieval"
	"github.com/hrygo/echonote/store"
	"github.com/hrygo/echonote/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "echonote",
	Short: "Voice-note context retrieval service",
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Build a chat context bundle for a query over one user's notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := setupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.close()

		userID := viper.GetInt32("user")
		bundle, err := env.builder.BuildContext(ctx, userID, args[0], retrieval.Options{
			MaxNotes:      viper.GetInt("max-notes"),
			MaxTotalChars: viper.GetInt("max-chars"),
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Create a note and index it for retrieval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := setupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.close()

		note, err := env.store.CreateNote(ctx, &store.Note{
			CreatorID: viper.GetInt32("user"),
			Title:     viper.GetString("title"),
			Content:   args[0],
			Tags:      viper.GetStringSlice("tags"),
		})
		if err != nil {
			return err
		}

		if env.embedder != nil {
			if err := indexNote(ctx, env, note); err != nil {
				slog.Warn("note created but not embedded", "uid", note.UID, "error", err)
			}
		}
		fmt.Println(note.UID)
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed notes that have no embedding yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := setupEnv(ctx)
		if err != nil {
			return err
		}
		defer env.close()

		if env.embedder == nil {
			return fmt.Errorf("AI is disabled; set %s", "ECHONOTE_AI_ENABLED=true")
		}

		notes, err := env.store.ListNotesWithoutEmbedding(ctx, &store.FindNotesWithoutEmbedding{
			Model: env.model,
			Limit: viper.GetInt("batch"),
		})
		if err != nil {
			return err
		}
		for _, note := range notes {
			if err := indexNote(ctx, env, note); err != nil {
				slog.Warn("failed to embed note", "uid", note.UID, "error", err)
				continue
			}
			slog.Info("embedded note", "uid", note.UID)
		}
		return nil
	},
}

type cmdEnv struct {
	store    *store.Store
	embedder ai.EmbeddingService
	builder  *retrieval.Builder
	model    string
}

func (e *cmdEnv) close() {
	if err := e.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func setupEnv(ctx context.Context) (*cmdEnv, error) {
	prof := &profile.Profile{
		Mode:   viper.GetString("mode"),
		Data:   viper.GetString("data"),
		Driver: viper.GetString("driver"),
		DSN:    viper.GetString("dsn"),
	}
	prof.FromEnv()
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	driver, err := db.NewDBDriver(prof)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, prof)
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	env := &cmdEnv{store: st}
	if prof.IsAIEnabled() {
		cfg := ai.NewConfigFromProfile(prof)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		embedder, err := ai.NewEmbeddingService(&cfg.Embedding)
		if err != nil {
			return nil, err
		}
		env.embedder = embedder
		env.model = cfg.Embedding.Model
	}

	limiter := ai.NewKeyedLimiter(0, 0)
	env.builder = retrieval.NewBuilder(env.embedder, retrieval.NewRetriever(st), limiter)
	return env, nil
}

func indexNote(ctx context.Context, env *cmdEnv, note *store.Note) error {
	text := strings.TrimSpace(note.Title + "\n" + note.Content)
	if runes := []rune(text); len(runes) > ai.MaxInputChars {
		text = string(runes[:ai.MaxInputChars])
	}
	vector, err := env.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	_, err = env.store.UpsertNoteEmbedding(ctx, &store.NoteEmbedding{
		NoteID:    note.ID,
		Model:     env.model,
		Embedding: vector,
	})
	return err
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().Int32("user", 1, "user ID to operate as")
	searchCmd.Flags().Int("max-notes", retrieval.DefaultMaxNotes, "maximum notes per context bundle")
	searchCmd.Flags().Int("max-chars", retrieval.DefaultMaxTotalChars, "maximum total excerpt characters")
	addCmd.Flags().String("title", "", "note title")
	addCmd.Flags().StringSlice("tags", nil, "note tags")
	backfillCmd.Flags().Int("batch", 100, "maximum notes to embed per run")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	for _, c := range []*cobra.Command{searchCmd, addCmd, backfillCmd} {
		if err := viper.BindPFlags(c.Flags()); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("echonote")
	viper.AutomaticEnv()

	rootCmd.AddCommand(searchCmd, addCmd, backfillCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
