package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/database"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/events"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/tokens"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// env holds flag values; flags fall back to the same environment variables
// the API server reads.
type env struct {
	v *viper.Viper
}

func (e env) openDB(ctx context.Context) (*gorm.DB, error) {
	url := e.v.GetString("database-url")
	if url == "" {
		return nil, errors.New("--database-url or DATABASE_URL is required")
	}
	db, err := database.Open(ctx, url, 2)
	if err != nil {
		return nil, err
	}
	if e.v.GetBool("migrate") {
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()
	e := env{v: v}

	root := &cobra.Command{
		Use:           "credits",
		Short:         "Inspect and adjust emoji credits",
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("database-url", "", "database url (env DATABASE_URL)")
	root.PersistentFlags().Bool("migrate", false, "run schema migrations before the command")
	_ = v.BindPFlag("database-url", root.PersistentFlags().Lookup("database-url"))
	_ = v.BindEnv("database-url", "DATABASE_URL")
	_ = v.BindPFlag("migrate", root.PersistentFlags().Lookup("migrate"))

	root.AddCommand(deriveCmd(), ensureCmd(e), showCmd(e), setCmd(e), tokenCmd(e))
	return root
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <external-id>...",
		Short: "Print the storage identity of external ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ext := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ext, identity.DeriveStorageIdentity(ext))
			}
			return nil
		},
	}
}

func ensureCmd(e env) *cobra.Command {
	var email string
	var initial int
	var tier string
	cmd := &cobra.Command{
		Use:   "ensure <external-id>",
		Short: "Get or create the profile of an external id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := models.Tier(tier)
			if !t.Valid() {
				return credits.ErrInvalidTier
			}
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			svc := profiles.NewService(profiles.NewGormRepository(db), nil, events.LoggingPublisher{}, profiles.Defaults{Credits: initial, Tier: t})
			p, err := svc.EnsureProfile(cmd.Context(), args[0], email)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email for the shadow auth user")
	cmd.Flags().IntVar(&initial, "initial-credits", 3, "credits of a newly created profile")
	cmd.Flags().StringVar(&tier, "tier", string(models.TierFree), "tier of a newly created profile")
	return cmd
}

func showCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <external-id>",
		Short: "Print a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			svc := profiles.NewService(profiles.NewGormRepository(db), nil, nil, profiles.Defaults{})
			p, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func setCmd(e env) *cobra.Command {
	var amount int
	var tier string
	cmd := &cobra.Command{
		Use:   "set <external-id>",
		Short: "Overwrite the credit balance (and optionally tier) of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			var t *models.Tier
			if tier != "" {
				tt := models.Tier(tier)
				t = &tt
			}
			ledger := credits.NewLedger(profiles.NewGormRepository(db), events.LoggingPublisher{})
			p, err := ledger.SetAbsolute(cmd.Context(), identity.DeriveStorageIdentity(args[0]), amount, t)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().IntVar(&amount, "credits", 10, "new absolute balance")
	cmd.Flags().StringVar(&tier, "tier", "", "new tier (free|pro)")
	return cmd
}

func tokenCmd(e env) *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <external-id>",
		Short: "Issue an HS256 access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := tokens.Sign(e.v.GetString("jwt-secret"), args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().String("jwt-secret", "", "signing secret (env JWT_SECRET)")
	_ = e.v.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	_ = e.v.BindEnv("jwt-secret", "JWT_SECRET")
	return cmd
}
