package cli

import (
	"fmt"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Creates an account directly in the database. This is the only way to create
an owner, since self-registration is limited to project managers and annotators.

Example:
  annotation-hub user create --name Admin --email admin@example.com --password s3cret --role owner`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := services.NewUserService(db).CreateUser(models.User{Name: name, Email: email, Role: role}, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User created")
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", models.RoleOwner, "owner, project_manager or annotator")
	for _, flag := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}
