package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pisciapp/backend/internal/app"
	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/bootstrap"
	"github.com/pisciapp/backend/internal/config"
	"github.com/pisciapp/backend/internal/domain/repository"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/store/pg"
	"github.com/pisciapp/backend/internal/util/atomicwrite"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	cfg        *config.Config
}

func newRoot() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pisci",
		Short:         "Herramienta operativa del backend de Pisci App",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "keygen" {
				return nil
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "pisci-cli", Version: app.Version})
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "ruta del YAML de configuración (env CONFIG_PATH)")

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.sweepCmd(), keygenCmd(), c.sessionsCmd(), c.adminCmd())
	return root
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP (y los jobs si jobs.enabled)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de Postgres (goose)",
	}
	for _, dir := range []pg.MigrateDirection{pg.MigrateUp, pg.MigrateDown, pg.MigrateStatus} {
		dir := dir
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: "goose " + string(dir),
			RunE: func(cmd *cobra.Command, _ []string) error {
				if c.cfg.Storage.Driver != "pg" {
					return fmt.Errorf("migrate requiere storage.driver=pg (actual %q)", c.cfg.Storage.Driver)
				}
				return pg.Migrate(cmd.Context(), c.cfg.Storage.DSN, dir)
			},
		})
	}
	return cmd
}

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [job]",
		Short: "Corre una vez los barridos de mantenimiento (todos si no se indica job)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg, app.WithoutHTTP())
			if err != nil {
				return err
			}
			defer a.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			out, err := a.Jobs.RunOnce(cmd.Context(), name)
			names := make([]string, 0, len(out))
			for n := range out {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %d\n", n, out[n])
			}
			return err
		},
	}
}

func keygenCmd() *cobra.Command {
	var out string
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera una semilla Ed25519 para jwt.signing_key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := jwtx.GenerateSeed()
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), seed)
				return nil
			}
			if err := atomicwrite.WriteFile(out, []byte(seed+"\n"), 0o600, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "semilla escrita en %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "archivo destino (0600); vacío imprime por stdout")
	cmd.Flags().BoolVar(&force, "force", false, "pisar el archivo si existe")
	return cmd
}

func (c *cli) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Gestión de sesiones"}

	var email string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoca todas las sesiones de un usuario (cierra todos sus dispositivos)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), c.cfg, app.WithoutHTTP())
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Store.Users().GetByEmail(cmd.Context(), repository.NormalizeEmail(email))
			if err != nil {
				return fmt.Errorf("usuario %q: %w", email, err)
			}
			n, err := a.Sessions.RevokeAllForUser(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			audit.Log(cmd.Context(), audit.AllSessionsRevoked, logger.UserID(u.ID), logger.Count(n), logger.String("via", "cli"))
			fmt.Fprintf(cmd.OutOrStdout(), "%d sesiones revocadas para %s\n", n, u.Email)
			return nil
		},
	}
	revoke.Flags().StringVar(&email, "email", "", "correo del usuario")
	_ = revoke.MarkFlagRequired("email")
	cmd.AddCommand(revoke)
	return cmd
}

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Cuentas de administración"}

	var name, email, pass string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea una cuenta Admin (pregunta lo que no venga por flag o env)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), c.cfg, app.WithoutHTTP())
			if err != nil {
				return err
			}
			defer a.Close()

			bc := bootstrap.AdminConfig{
				Users: a.Store.Users(), Hasher: a.Hasher, Policy: a.Policy,
				Name: name, Email: email, Password: pass,
			}
			if err := bootstrap.PromptCredentials(cmd.InOrStdin(), cmd.OutOrStdout(), &bc); err != nil {
				return err
			}
			u, err := bootstrap.CreateAdmin(cmd.Context(), bc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin creado: %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "nombre visible")
	create.Flags().StringVar(&email, "email", os.Getenv("PISCI_ADMIN_EMAIL"), "correo (env PISCI_ADMIN_EMAIL)")
	create.Flags().StringVar(&pass, "password", os.Getenv("PISCI_ADMIN_PASSWORD"), "contraseña (env PISCI_ADMIN_PASSWORD)")
	cmd.AddCommand(create)
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
