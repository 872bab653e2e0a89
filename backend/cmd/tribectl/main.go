package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tribehub/backend/internal/graph"
	"tribehub/backend/pkg/config"
	"tribehub/backend/pkg/logger"
)

const (
	Version = "0.1.0"
	appName = "tribectl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Administer the content graph",
		Long: `tribectl prepares the Neo4j content graph behind the TribeHub API.

It can apply the schema (constraints and indexes), seed actors and
sample posts, and wipe the content graph.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(schemaCmd(&logLevel))
	cmd.AddCommand(seedCmd(&logLevel))
	cmd.AddCommand(resetCmd(&logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func schemaCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *logLevel, func(ctx context.Context, store *graph.Neo4jStore, log *zap.Logger) error {
				applied := graph.EnsureSchema(ctx, store, log)
				log.Info("Schema ensured", zap.Int("statements", applied))
				return nil
			})
		},
	}
}

func seedCmd(logLevel *string) *cobra.Command {
	var (
		experts     []string
		subscribers []string
		samples     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create actors and, optionally, sample posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			expertSpecs, err := parseActorSpecs(experts)
			if err != nil {
				return err
			}
			subscriberSpecs, err := parseActorSpecs(subscribers)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), *logLevel, func(ctx context.Context, store *graph.Neo4jStore, log *zap.Logger) error {
				repo := graph.NewRepository(store, graph.WithLogger(log))
				return seed(ctx, repo, log, expertSpecs, subscriberSpecs, samples)
			})
		},
	}

	cmd.Flags().StringSliceVar(&experts, "expert", []string{"expert-1:Expert One"}, "Expert to create, as id:name (repeatable)")
	cmd.Flags().StringSliceVar(&subscribers, "subscriber", []string{"subscriber-1:Subscriber One"}, "Subscriber to create, as id:name (repeatable)")
	cmd.Flags().BoolVar(&samples, "samples", false, "Also create a published post and a pending proposal")

	return cmd
}

func resetCmd(logLevel *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every post and comment, keeping actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the content graph without --yes")
			}
			return withStore(cmd.Context(), *logLevel, func(ctx context.Context, store *graph.Neo4jStore, log *zap.Logger) error {
				deleted, err := graph.ResetContent(ctx, store)
				if err != nil {
					return err
				}
				log.Info("Content graph reset", zap.Int64("deleted_nodes", deleted))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation guard")
	return cmd
}

// withStore loads configuration, initializes logging and opens the store
// for the duration of fn.
func withStore(ctx context.Context, logLevel string, fn func(ctx context.Context, store *graph.Neo4jStore, log *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Named(appName)

	store, err := graph.NewNeo4jStore(ctx, graph.ConnConfig{
		URI:                   cfg.Neo4jURI,
		User:                  cfg.Neo4jUser,
		Password:              cfg.Neo4jPassword,
		Database:              cfg.Neo4jDatabase,
		MaxConnectionPoolSize: cfg.Neo4jMaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	return fn(ctx, store, log)
}

type actorSpec struct {
	ID   string
	Name string
}

// parseActorSpecs reads id:name pairs; the name defaults to the id
func parseActorSpecs(values []string) ([]actorSpec, error) {
	specs := make([]actorSpec, 0, len(values))
	for _, value := range values {
		id, name, _ := strings.Cut(value, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid actor %q: empty id", value)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = id
		}
		specs = append(specs, actorSpec{ID: id, Name: name})
	}
	return specs, nil
}

// seeder is the part of the repository seeding needs
type seeder interface {
	EnsureActor(ctx context.Context, kind graph.ActorKind, id, name string) (*graph.Actor, error)
	CreatePost(ctx context.Context, in graph.PostInput, published bool, actorID string) (*graph.PostRecord, error)
}

func seed(ctx context.Context, repo seeder, log *zap.Logger, experts, subscribers []actorSpec, samples bool) error {
	for _, spec := range experts {
		if _, err := repo.EnsureActor(ctx, graph.KindExpert, spec.ID, spec.Name); err != nil {
			return fmt.Errorf("failed to seed expert %s: %w", spec.ID, err)
		}
		log.Info("Expert ready", zap.String("id", spec.ID))
	}
	for _, spec := range subscribers {
		if _, err := repo.EnsureActor(ctx, graph.KindSubscriber, spec.ID, spec.Name); err != nil {
			return fmt.Errorf("failed to seed subscriber %s: %w", spec.ID, err)
		}
		log.Info("Subscriber ready", zap.String("id", spec.ID))
	}

	if !samples {
		return nil
	}
	if len(experts) == 0 || len(subscribers) == 0 {
		return fmt.Errorf("sample posts need at least one expert and one subscriber")
	}

	published, err := repo.CreatePost(ctx, graph.PostInput{
		Title:   "Le Ngondo",
		Content: "Fête traditionnelle des peuples Sawa, célébrée chaque année au bord du Wouri.",
		Region:  "littoral",
		Tribe:   "sawa",
	}, true, experts[0].ID)
	if err != nil {
		return fmt.Errorf("failed to create sample post: %w", err)
	}
	log.Info("Sample post published", zap.String("post_id", published.ID))

	proposed, err := repo.CreatePost(ctx, graph.PostInput{
		Title:   "Le Nguon",
		Content: "Rite de purification et d'évaluation du royaume Bamoun.",
		Region:  "ouest",
		Tribe:   "bamoun",
	}, false, subscribers[0].ID)
	if err != nil {
		return fmt.Errorf("failed to create sample proposal: %w", err)
	}
	log.Info("Sample proposal filed", zap.String("post_id", proposed.ID))
	return nil
}
