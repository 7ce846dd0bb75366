package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
	"github.com/spigell/skillmatch/internal/logger"
	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/secrets"
	"github.com/spigell/skillmatch/internal/session"
)

// application is the wiring shared by every command that talks to the backend.
type application struct {
	config  *Config
	logger  *zap.Logger
	client  *backend.Client
	repo    *market.Repository
	session *session.Session

	closers []func() error
}

// setup builds the application or exits the process.
func setup(ctx context.Context) *application {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	a, err := newApplication(ctx, lg)
	if err != nil {
		lg.Fatal("starting the skillmatch", zap.Error(err))
	}

	return a
}

func newApplication(ctx context.Context, lg *zap.Logger) (*application, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	lg.Debug(fmt.Sprintf("starting with config: \n %s", pretty), zap.String("version", version))

	if strings.TrimSpace(config.Backend.URL) == "" {
		return nil, errors.New("backend url is not configured (set backend.url or SKILLMATCH_URL)")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "backend api key",
		File:  config.Backend.APIKeyFile,
		Env:   "SKILLMATCH_API_KEY",
		Value: config.Backend.APIKey,
	})
	if err != nil {
		return nil, err
	}

	a := &application{
		config: config,
		logger: lg,
		client: backend.New(lg, config.Backend.URL, apiKey),
	}

	if config.Backend.UserAgent != "" {
		a.client.UserAgent = config.Backend.UserAgent
	}

	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	a.session, err = session.Open(ctx, store, lg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening session: %w", err)
	}

	if a.session.IsAuthenticated() {
		a.client.SetToken(a.session.Token())
		user, _ := a.session.User()
		a.logger = logger.WithSession(lg, user.ID, string(user.Role))
	}

	a.repo = market.NewRepository(a.client, a.logger)

	return a, nil
}

func (a *application) sessionStore(ctx context.Context) (session.Store, error) {
	cfg := a.config.Session

	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		store, err := session.NewRedisStore(ctx, url, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("connecting session redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Debug("using redis session store", zap.String("prefix", cfg.Prefix))
		return store, nil
	}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolving session file: %w", err)
		}
	}
	a.logger.Debug("using file session store", zap.String("path", path))

	return session.NewFileStore(path), nil
}

// Close releases the session store.
func (a *application) Close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Warn("closing resources", zap.Error(err))
		}
	}
}

// signedIn returns the current user id or exits with a hint to sign in.
func (a *application) signedIn() string {
	id, err := a.session.UserID()
	if err != nil {
		a.logger.Fatal("not signed in", zap.String("hint", "run 'skillmatch auth signin' first"))
	}
	return id
}

// as returns the current user id when the session holds role, exiting otherwise.
func (a *application) as(role market.Role) string {
	id, err := a.session.RequireRole(role)
	if errors.Is(err, session.ErrNotAuthenticated) {
		a.logger.Fatal("not signed in", zap.String("hint", "run 'skillmatch auth signin' first"))
	}
	if err != nil {
		a.logger.Fatal("command is not available for this account", zap.Error(err))
	}
	return id
}

func redacted(c *Config) Config {
	out := *c
	if c.Backend != nil && c.Backend.APIKey != "" {
		b := *c.Backend
		b.APIKey = "<redacted>"
		out.Backend = &b
	}
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		ai := *c.AI
		g := *c.AI.Gemini
		g.APIKey = "<redacted>"
		ai.Gemini = &g
		out.AI = &ai
	}
	return out
}
