// Package main provides the spotify-dlp CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"spotifydlp/internal/core"
	"spotifydlp/internal/download"
	httpserver "spotifydlp/internal/http"
	"spotifydlp/internal/i18n"
	"spotifydlp/internal/spotify"
	"spotifydlp/internal/store"
)

const (
	version      = "2.1.2"
	envPrefix    = "SPOTIFY_DLP"
	coverTimeout = 30 * time.Second
	// exitInterrupted is the conventional status of a process stopped by SIGINT.
	exitInterrupted = 130
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spotify-dlp [query...]",
	Short: "Command line downloader for spotify tracks, playlists, albums and top artists tracks",
	Long: `spotify-dlp resolves search words, a Spotify link or a Spotify URI into a list of tracks
and downloads each of them with yt-dlp. Use "saved" as the query to download the tracks
saved in your library (requires "spotify-dlp login" first).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDownload,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with your Spotify account to access your saved tracks",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields available to the format argument",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printFields(newPrinter(cmd.OutOrStdout(), i18n.NewLocalizer(config.App.Language)), nil)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, i18n.NewLocalizer(languageOrDefault()).T("info.interrupted"))
			os.Exit(exitInterrupted)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.StringP("client-id", "i", "", "The Spotify Client ID")
	flags.StringP("client-secret", "s", "", "The Spotify Client Secret")
	flags.StringP("format", "f", defaults.Download.Format,
		`The format of the downloaded tracks' names. Set to "help" for a list of available fields`)
	flags.StringP("type", "t", string(defaults.App.SearchType),
		"When searching up a query, the specified type of content (album, artist, playlist, track)")
	flags.StringP("output", "o", defaults.Download.OutputDir, "The output path of the downloaded tracks")
	flags.StringP("codec", "c", defaults.Download.Codec, "The audio codec of the downloaded tracks")
	flags.StringP("slice", "l", defaults.App.Slice,
		`The beginning and ending index of the list items to download separated by a colon ":" (1-based)`)
	flags.BoolP("yes", "y", false, "Whether to skip the confirmation prompt")
	flags.BoolP("verbose", "v", false, "Whether to display verbose information (same as --log-level debug)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log encoding (console, json)")
	flags.String("market", defaults.Spotify.Market, "Market used for artist top tracks")
	flags.Int("duration-tolerance", defaults.Download.DurationToleranceSecs,
		"Accepted difference in seconds between the catalog and the candidate duration (0 disables)")
	flags.Int("max-results", defaults.Download.MaxResults, "Candidates considered per search source")
	flags.String("ytdlp-path", defaults.Download.YTDLPPath, "Path of the yt-dlp binary")
	flags.String("token-path", defaults.Spotify.TokenPath, "Where the login token is stored")
	flags.String("redirect-url", defaults.Spotify.RedirectURL, "Local callback URL of the login flow")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on host:port during the run (empty disables)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Message language (%s)", supportedLangs))
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(loginCmd, fieldsCmd)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configureDownload(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func setString(key string, dst *string) {
	if viper.IsSet(key) {
		*dst = viper.GetString(key)
	}
}

func setInt(key string, dst *int) {
	if viper.IsSet(key) {
		*dst = viper.GetInt(key)
	}
}

func configureSpotify(cfg *core.Config) {
	setString("client-id", &cfg.Spotify.ClientID)
	setString("client-secret", &cfg.Spotify.ClientSecret)
	setString("redirect-url", &cfg.Spotify.RedirectURL)
	setString("token-path", &cfg.Spotify.TokenPath)
	setString("market", &cfg.Spotify.Market)
}

func configureDownload(cfg *core.Config) {
	setString("output", &cfg.Download.OutputDir)
	setString("codec", &cfg.Download.Codec)
	setString("format", &cfg.Download.Format)
	setString("ytdlp-path", &cfg.Download.YTDLPPath)
	setInt("duration-tolerance", &cfg.Download.DurationToleranceSecs)
	setInt("max-results", &cfg.Download.MaxResults)
	if cfg.Download.MaxResults <= 0 {
		cfg.Download.MaxResults = core.DefaultMaxResults
	}
}

func configureServer(cfg *core.Config) {
	setString("metrics-addr", &cfg.Server.MetricsAddr)
	setString("log-level", &cfg.Log.Level)
	setString("log-format", &cfg.Log.Format)
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
}

func configureApp(cfg *core.Config) {
	if viper.IsSet("type") {
		cfg.App.SearchType = core.EntityType(strings.ToLower(viper.GetString("type")))
	}
	setString("slice", &cfg.App.Slice)
	cfg.App.AssumeYes = viper.GetBool("yes")

	setString("language", &cfg.App.Language)
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}
}

func languageOrDefault() string {
	if config == nil {
		return i18n.DefaultLanguage
	}
	return config.App.Language
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.WarnLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if strings.ToLower(format) != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateCredentials() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("client ID is required (--client-id or %s_CLIENT_ID)", envPrefix)
	}
	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("client secret is required (--client-secret or %s_CLIENT_SECRET)", envPrefix)
	}
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("a query is required: search words, a link, a URI or \"saved\"")
	}
	if err := validateCredentials(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := newPrinter(cmd.OutOrStdout(), i18n.NewLocalizer(config.App.Language))
	metrics := httpserver.NewMetrics()

	dedup, err := store.NewDedupStore(config.App.DedupCapacity, config.App.DedupFalsePositiveRate)
	if err != nil {
		return err
	}

	tokens := spotify.NewTokenStore(afero.NewOsFs(), config.Spotify.TokenPath)
	session := newLazySession(func(ctx context.Context) (spotify.TokenProvider, error) {
		return openSession(ctx, query, tokens)
	})
	catalog := spotify.NewClient(session, logger.Named("spotify"),
		spotify.WithMarket(config.Spotify.Market),
		spotify.WithMetrics(metrics))

	var media core.MediaFetcher = download.NewYTDLP(&config.Download, download.ExecRunner{},
		download.NewTagger(&http.Client{Timeout: coverTimeout}, logger.Named("tagger")),
		logger.Named("ytdlp"))
	if viper.GetBool("verbose") {
		media = &announcingFetcher{next: media, out: out}
	}

	orchestrator := core.NewOrchestrator(config, catalog, media, dedup, metrics, logger.Named("orchestrator"))
	if err := orchestrator.Validate(); err != nil {
		return err
	}

	logger.Info("Starting spotify-dlp",
		zap.String("version", version),
		zap.String("query", query),
		zap.String("type", string(config.App.SearchType)),
		zap.String("slice", config.App.Slice))

	return runWithMetrics(ctx, metrics, func(ctx context.Context) error {
		return runPipeline(ctx, cmd, out, orchestrator, query)
	})
}

func runPipeline(ctx context.Context, cmd *cobra.Command, out *printer, orchestrator *core.Orchestrator, query string) error {
	items, err := orchestrator.Resolve(ctx, query)
	if errors.Is(err, core.ErrNoResults) {
		out.say("info.no_results")
		return nil
	}
	if err != nil {
		return describeError(out, err)
	}

	if config.Download.Format == core.FormatHelp {
		printFields(out, &items[0])
		return nil
	}

	if err := printItems(out, items, config.Download.Format); err != nil {
		return err
	}

	if !config.App.AssumeYes {
		out.blank()
		out.prompt("prompt.confirm")
		if !confirmed(cmd.InOrStdin()) {
			out.say("info.aborted")
			return nil
		}
	}
	out.blank()

	orchestrator.SetResultHandler(resultHandler(out, config.Download.Format, len(items)))

	summary, err := orchestrator.Download(ctx, items)
	if err != nil {
		return err
	}

	out.say("info.summary", summary.Downloaded, summary.Failed, summary.Skipped)
	return nil
}

// runWithMetrics runs fn, serving metrics beside it when an address is configured. The
// server stops once fn returns.
func runWithMetrics(ctx context.Context, metrics *httpserver.Metrics, fn func(context.Context) error) error {
	if config.Server.MetricsAddr == "" {
		return fn(ctx)
	}

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	g, gCtx := errgroup.WithContext(serverCtx)
	server := httpserver.NewServer(&config.Server, metrics, logger.Named("http"))

	g.Go(func() error {
		return server.Start(gCtx)
	})

	g.Go(func() error {
		defer stopServer()
		return fn(gCtx)
	})

	return g.Wait()
}

// openSession prefers the logged-in user's token and falls back to the app token, except
// for the saved library which always needs the user.
func openSession(ctx context.Context, query string, tokens *spotify.TokenStore) (spotify.TokenProvider, error) {
	session, err := spotify.NewUserSession(&config.Spotify, tokens, logger.Named("session"))
	if err == nil {
		logger.Debug("Using saved user token", zap.String("path", tokens.Path()))
		return session, nil
	}
	if query == core.SavedSentinel || !errors.Is(err, spotify.ErrNoToken) {
		return nil, err
	}

	return spotify.Authenticate(ctx, config.Spotify.ClientID, config.Spotify.ClientSecret)
}

func describeError(out *printer, err error) error {
	var authErr *core.AuthError
	if errors.As(err, &authErr) && authErr.Op == "client credentials" {
		return fmt.Errorf("%s: %w", out.loc.T("error.auth"), err)
	}
	return err
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if err := validateCredentials(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := newPrinter(cmd.OutOrStdout(), i18n.NewLocalizer(config.App.Language))
	tokens := spotify.NewTokenStore(afero.NewOsFs(), config.Spotify.TokenPath)

	announce := func(authURL string) {
		out.say("login.open_url", authURL)
		out.say("login.waiting")
	}

	if _, err := spotify.Login(ctx, &config.Spotify, tokens, announce, logger.Named("login")); err != nil {
		return err
	}

	out.say("success.login", tokens.Path())
	return nil
}
