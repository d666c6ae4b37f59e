package cli

import (
	"fmt"
	"os"

	"github.com/Tenac92/LEXIS-sub001/internal/auth/credentials"
	"github.com/Tenac92/LEXIS-sub001/internal/db"

	"github.com/spf13/cobra"
)

type userOptions struct {
	DSN      string
	Email    string
	Password string
	Role     string
	Units    []int64
}

// NewUserCommand creates the user command group.
func NewUserCommand(_ *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision gateway users",
	}
	cmd.AddCommand(newUserAddCommand())
	return cmd
}

func newUserAddCommand() *cobra.Command {
	opts := &userOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with a password and unit assignments",
		Long: `Create a user with a password and unit assignments. Units must already
exist. Non-admin users without units are refused at the websocket handshake.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DSN == "" {
				return fmt.Errorf("--dsn or DATABASE_DSN is required")
			}
			ctx := cmd.Context()

			database, err := db.Open(ctx, opts.DSN)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return err
			}

			userID, err := credentials.NewService(database).Register(
				ctx,
				opts.Email,
				opts.Password,
				opts.Role,
				opts.Units,
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", userID, opts.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", os.Getenv("DATABASE_DSN"), "Postgres connection string")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "initial password (min 8 characters)")
	cmd.Flags().StringVar(&opts.Role, "role", credentials.DefaultRole, "role; admin sees every unit")
	cmd.Flags().Int64SliceVar(&opts.Units, "units", nil, "unit ids to assign")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
