// Package manage implements the operational commands run beside the API server:
// waiting for the database, migrating the schema and creating staff accounts.
package manage

import (
	"context" // Command context
	"errors"  // Error handling
	"fmt"     // Output formatting
	"strings" // Input trimming
	"time"    // Wait intervals

	"recipe_api/internal/config"  // Configuration
	"recipe_api/internal/db"      // Database connection
	"recipe_api/internal/domain"  // Domain models
	"recipe_api/internal/logging" // Logger setup

	"github.com/go-playground/validator/v10" // Email validation
	"github.com/sirupsen/logrus"             // Logging library
	"github.com/urfave/cli/v3"               // Command line parsing
	"golang.org/x/crypto/bcrypt"             // Password hashing
	"gorm.io/gorm"                           // GORM ORM library
)

// ErrEmailTaken is returned when a superuser's email is already registered
var ErrEmailTaken = errors.New("a user with this email already exists")

// Command builds the manage CLI. load supplies the configuration for each run.
func Command(load func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "manage",
		Usage: "Recipe API management commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error); overrides LOG_LEVEL",
			},
		},
		Commands: []*cli.Command{
			waitForDBCmd(load),
			migrateCmd(load),
			createSuperuserCmd(load),
		},
	}
}

// setup loads configuration and applies the logger settings
func setup(cmd *cli.Command, load func() *config.Config) (*config.Config, error) {
	cfg := load()
	level := cfg.LogLevel
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	if err := logging.Setup(level, cfg.IsProd); err != nil {
		return nil, err
	}
	return cfg, nil
}

func waitForDBCmd(load func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "wait-for-db",
		Usage: "Block until the configured database accepts connections",
		Description: `Pings the database until it responds, sleeping --interval between attempts.

Used as a container entrypoint step so migrations and the server only start
once the database is up:
  manage wait-for-db && manage migrate && server`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "time to wait between attempts",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "give up after this long (0 waits forever)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd, load)
			if err != nil {
				return err
			}
			if timeout := cmd.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			ping := func(ctx context.Context) error { return db.Ping(ctx, cfg) }
			if err := db.WaitForDB(ctx, ping, cmd.Duration("interval"), logrus.StandardLogger()); err != nil {
				return fmt.Errorf("database not available: %w", err)
			}
			return nil
		},
	}
}

func migrateCmd(load func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd, load)
			if err != nil {
				return err
			}
			database, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)
			return db.Migrate(database.WithContext(ctx))
		},
	}
}

func createSuperuserCmd(load func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "create-superuser",
		Usage: "Create a staff user that can reach the admin endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "login email"},
			&cli.StringFlag{Name: "name", Required: true, Usage: "display name"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "password, at least 5 characters"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := setup(cmd, load)
			if err != nil {
				return err
			}
			database, err := db.Open(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)
			user, err := CreateSuperuser(ctx, database, cmd.String("email"), cmd.String("name"), cmd.String("password"))
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"email":   user.Email,
			}).Info("Superuser created")
			return nil
		},
	}
}

var validate = validator.New()

// CreateSuperuser stores a new active staff user after the same checks registration applies
func CreateSuperuser(ctx context.Context, database *gorm.DB, email, name, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if len(password) < 5 {
		return nil, errors.New("password must be at least 5 characters")
	}

	tx := database.WithContext(ctx)
	var count int64
	if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Email:    email,
		Name:     name,
		Password: string(hash),
		IsActive: true,
		IsStaff:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func closeDB(database *gorm.DB) {
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
