package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/mcp-auth-gateway/approval"
	"github.com/jrsteele09/mcp-auth-gateway/authstate"
	"github.com/jrsteele09/mcp-auth-gateway/clients"
	"github.com/jrsteele09/mcp-auth-gateway/internal/config"
	"github.com/jrsteele09/mcp-auth-gateway/internal/keys"
	"github.com/jrsteele09/mcp-auth-gateway/internal/metrics"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/jrsteele09/mcp-auth-gateway/server"
	"github.com/jrsteele09/mcp-auth-gateway/sessions"
	"github.com/jrsteele09/mcp-auth-gateway/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load(".env")

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())
	if c.GetBaseURL() == "" && c.GetEnv() != "DEV" {
		log.Warn().Msg("BASE_URL is not set, provider callbacks and metadata use the request's Host header")
	}

	ctx := context.Background()
	closers := []io.Closer{}
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()

	deps, err := buildDeps(ctx, c, &closers)
	if err != nil {
		return err
	}
	handler, err := server.New(c, deps)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func buildDeps(ctx context.Context, c config.Config, closers *[]io.Closer) (server.Deps, error) {
	keySet, err := loadKeys(c)
	if err != nil {
		return server.Deps{}, err
	}

	approvals, err := approval.New(keySet.ApprovalHash, keySet.ApprovalBlock, approval.WithSecure(c.GetSecureCookies()))
	if err != nil {
		return server.Deps{}, fmt.Errorf("approval.New: %w", err)
	}

	var codec authstate.Codec = authstate.Base64Codec{}
	if len(c.GetCookieSecret()) > 0 {
		if codec, err = authstate.NewSignedCodec(keySet.State, c.GetStateTTL()); err != nil {
			return server.Deps{}, fmt.Errorf("authstate.NewSignedCodec: %w", err)
		}
	}

	clientRepo := clients.NewInMemoryRepo()
	static, err := clients.ParseStaticClients(c.GetStaticClients())
	if err != nil {
		return server.Deps{}, fmt.Errorf("STATIC_CLIENTS: %w", err)
	}
	for _, client := range static {
		if err := clientRepo.Upsert(client); err != nil {
			return server.Deps{}, fmt.Errorf("clients.Upsert %s: %w", client.ID, err)
		}
		log.Info().Str("client_id", client.ID).Msg("Static client registered")
	}

	var grants sessions.Repo = sessions.NewMemoryRepo()
	if c.GetSessionStore() == config.StoreRedis {
		redisRepo, err := sessions.NewRedisRepo(ctx, c.GetRedisURL(), "mcp-gateway")
		if err != nil {
			return server.Deps{}, fmt.Errorf("sessions.NewRedisRepo: %w", err)
		}
		*closers = append(*closers, redisRepo)
		grants = redisRepo
	}

	m := metrics.New()
	providerOpts := []providers.Option{
		providers.WithHTTPClient(&http.Client{Timeout: c.GetOutboundTimeout()}),
		providers.WithObserver(m.ObserveUpstream),
		providers.WithIDTokenVerification(c.GetVerifyIDTokens()),
	}

	mcp, err := buildMCP(ctx, c, m, closers)
	if err != nil {
		return server.Deps{}, err
	}

	for _, name := range providers.Configured(c) {
		log.Info().Str("provider", string(name)).Msg("Provider enabled")
	}

	return server.Deps{
		Clients:         clientRepo,
		Approvals:       approvals,
		State:           codec,
		Issuer:          sessions.NewIssuer(grants, c.GetAuthCodeTimeout(), c.GetAccessTokenExpiry()),
		Providers:       c,
		ProviderOptions: providerOpts,
		MCP:             mcp,
		Metrics:         m,
	}, nil
}

func buildMCP(ctx context.Context, c config.Config, m *metrics.Metrics, closers *[]io.Closer) (*mcpserver.MCPServer, error) {
	opts := []tools.Option{
		tools.WithRepoSearch(tools.NewGitHubClient(c.GetGitHubAPIURL(), c.GetOutboundTimeout())),
		tools.WithCallObserver(m.ObserveTool),
	}

	if dsn := c.GetDatabaseURL(); dsn != "" {
		db, err := tools.NewPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("tools.NewPostgres: %w", err)
		}
		*closers = append(*closers, db)
		opts = append(opts, tools.WithDatabase(db))
	}
	if host := c.GetSmtpHost(); host != "" {
		opts = append(opts, tools.WithMailer(tools.NewSMTPMailer(host, c.GetSmtpPort(), c.GetSmtpAccount(), c.GetSmtpPassword(), c.GetMailFrom())))
	}
	if key := c.GetBraveAPIKey(); key != "" {
		opts = append(opts, tools.WithWebSearch(tools.NewBraveClient("", key, c.GetOutboundTimeout())))
	}

	s := mcpserver.NewMCPServer(c.GetAppName(), version, mcpserver.WithToolCapabilities(false), mcpserver.WithRecovery())
	registered := tools.New(tools.NewAllowList(c.GetAllowedUsernames()...), opts...).Register(s)
	log.Info().Strs("tools", registered).Msg("MCP tools registered")
	return s, nil
}

// loadKeys derives the cookie and state keys. Without a configured secret the
// keys are random, so approvals and in-flight logins do not survive a restart.
func loadKeys(c config.Config) (*keys.Set, error) {
	secret := c.GetCookieSecret()
	if len(secret) == 0 {
		log.Warn().Msg("COOKIE_ENCRYPTION_KEY is not set, using a random key and unsigned state")
		secret = make([]byte, keys.MinSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("rand.Read: %w", err)
		}
	}
	set, err := keys.FromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("COOKIE_ENCRYPTION_KEY: %w", err)
	}
	return set, nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
