package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"lifecal/internal/caldav"
	"lifecal/internal/config"
	"lifecal/internal/google"
	"lifecal/internal/store"
	"lifecal/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "lifecal",
		Usage: "Unified calendar of tasks, projects, Bible studies and health goals.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config file (default: $XDG_CONFIG_HOME/lifecal/config.yaml)", EnvVars: []string{"LIFECAL_CONFIG"}},
		},
		Commands: []*cli.Command{
			authCommand(),
			connectCommand(),
			disconnectCommand(),
			syncCommand(),
			statusCommand(),
			settingsCommand(),
			eventCommand(),
			exportCommand(),
			importCommand(),
			taskCommand(),
			projectCommand(),
			studyCommand(),
			goalCommand(),
			fileCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// runtime bundles what every command needs.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	loc    *time.Location
	store  *store.Store
	agg    *syncer.Aggregator
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// openRuntime loads the config, opens the store and builds the aggregator.
func openRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database
	if dbPath == "" {
		if dbPath, err = store.DefaultPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}

	connector, err := newConnector(c.Context, cfg, logger)
	if err != nil {
		// Local commands still work; connect and sync report the cause.
		logger.Warn("Calendar connector unavailable", "connector", cfg.Connector, "error", err)
		connector = syncer.Unavailable(err)
	}

	agg, err := syncer.New(syncer.Options{
		Sources: syncer.Sources{
			Tasks:    st,
			Projects: st,
			Studies:  st,
			Health:   st,
		},
		Connector: connector,
		Persister: st,
		Logger:    logger,
		Location:  loc,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}
	st.OnChange(func(key string) {
		logger.Debug("Collection changed", "key", key)
		// Files never show up on the calendar.
		if key != store.KeyFiles {
			agg.NotifyChanged()
		}
	})

	return &runtime{cfg: cfg, logger: logger, loc: loc, store: st, agg: agg}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("Failed to close store", "error", err)
	}
}

// withRuntime adapts a command action that needs a runtime.
func withRuntime(fn func(c *cli.Context, r *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := openRuntime(c)
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(c, r)
	}
}

// newConnector builds the external calendar selected in the config.
func newConnector(ctx context.Context, cfg *config.Config, logger *slog.Logger) (syncer.Connector, error) {
	switch cfg.Connector {
	case config.ConnectorGoogle:
		conn, err := google.NewConnector(ctx, logger, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.TokenDir, cfg.Google.Account, cfg.Google.CalendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to create google connector: %w", err)
		}
		return conn, nil
	case config.ConnectorCalDAV:
		pub, err := caldav.NewPublisher(logger, cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendar)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav publisher: %w", err)
		}
		return pub, nil
	default:
		sim := syncer.NewSimulatedConnector(logger)
		sim.ConnectDelay = cfg.Simulated.ConnectDelay
		sim.PushDelay = cfg.Simulated.PushDelay
		if cfg.Simulated.Fail {
			sim.Fail = errors.New("simulated calendar failure")
		}
		return sim, nil
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Usage: "List the accounts that already have a token."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			if c.Bool("list") {
				accounts, err := google.TokenAccounts(cfg.Google.TokenDir)
				if err != nil {
					return fmt.Errorf("failed to list accounts: %w", err)
				}
				for _, a := range accounts {
					fmt.Println(a)
				}
				return nil
			}
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.TokenDir)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Printf("Enter a name for this account (default %q): ", cfg.Google.Account)
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				accountName = cfg.Google.Account
			}
			tokenFile := google.TokenPath(cfg.Google.TokenDir, accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
