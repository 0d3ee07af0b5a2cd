package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/strandmedia/strand/internal/config"
	"github.com/strandmedia/strand/internal/content"
	"github.com/strandmedia/strand/internal/domain"
	"github.com/strandmedia/strand/internal/log"
	"github.com/strandmedia/strand/internal/player/mpv"
	"github.com/strandmedia/strand/internal/session"
	"github.com/strandmedia/strand/internal/store"
	"github.com/strandmedia/strand/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage:
  strand movie <content-id>
  strand tv <content-id> <season> <episode>

Flags:
  -v, -version   print version
  -setup         re-run the setup flow`

func main() {
	var showVersion bool
	var runSetup bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&runSetup, "setup", false, "re-run the setup flow")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Printf("strand %s\n", Version)
		return
	}

	if err := run(runSetup); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(forceSetup bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting strand", "version", Version)

	if forceSetup || !cfg.IsConfigured() {
		return runSetupFlow(cfg)
	}

	params, err := parseParams(flag.Args())
	if err != nil {
		flag.Usage()
		return err
	}

	client := content.NewClient(cfg.Server.URL, cfg.Server.Token, logger)

	db, err := store.Open(config.DefaultCachePath())
	if err != nil {
		logger.Warn("cache store unavailable, running without persistence", "error", err)
		db, _ = store.Open("")
	}
	defer db.Close()

	if err := db.SeedCaptionPref(store.CaptionPref{State: cfg.Captions.PreferredLanguage}); err != nil {
		logger.Warn("caption preference seed failed", "error", err)
	}

	handle, err := mpv.Launch(cfg.Playback.Command, cfg.Playback.Args, cfg.Playback.BufferConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}
	defer handle.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := session.NewAppContext(nil, browseCache{db}, logger)
	episodes := session.NewEpisodeList(client, db, app, logger)

	// Keep the picker's cached list fresh for episodic content. The loop
	// yields to the playback gate while a session is active.
	if params.MediaType == domain.MediaTypeTV {
		go episodes.Run(ctx, params.ContentID, params.Season)
	}

	// Session update notifications feed the TUI refresh loop. Buffered so
	// controller callbacks never block; a dropped signal is coalesced into
	// the pending one.
	updates := make(chan struct{}, 1)
	notify := func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}

	nav := &routeState{logger: logger}

	ctrl := session.New(params, session.Deps{
		Content: client,
		Handle:  handle,
		Nav:     nav,
		Prefs:   db,
		History: db,
		App:     app,
		Logger:  logger,
		Notify:  notify,
	})

	// Route-parameter writes flow back into the controller, the same way a
	// router would re-render the screen with new params. While a switch is
	// in flight the controller just records them.
	nav.onChange = func(p session.ContentParams) {
		go func() {
			_ = ctrl.SetParams(context.Background(), p)
		}()
	}

	model := tui.NewModel(ctrl, episodes, updates, float64(cfg.Playback.SeekStep))

	logger.Info("starting player screen",
		"contentID", params.ContentID, "mediaType", params.MediaType,
		"season", params.Season, "episode", params.Episode)

	if err := tui.Run(ctx, model); err != nil {
		logger.Error("player screen error", "error", err)
		return err
	}

	logger.Info("shutting down")
	return nil
}

// parseParams maps positional arguments to content parameters.
func parseParams(args []string) (session.ContentParams, error) {
	if len(args) < 2 {
		return session.ContentParams{}, fmt.Errorf("missing content arguments")
	}

	switch domain.MediaType(args[0]) {
	case domain.MediaTypeMovie:
		return session.ContentParams{
			ContentID: args[1],
			MediaType: domain.MediaTypeMovie,
		}, nil

	case domain.MediaTypeTV:
		if len(args) < 4 {
			return session.ContentParams{}, fmt.Errorf("tv playback needs a season and episode")
		}
		seasonNum, err := strconv.Atoi(args[2])
		if err != nil || seasonNum < 1 {
			return session.ContentParams{}, fmt.Errorf("invalid season %q", args[2])
		}
		episodeNum, err := strconv.Atoi(args[3])
		if err != nil || episodeNum < 1 {
			return session.ContentParams{}, fmt.Errorf("invalid episode %q", args[3])
		}
		return session.ContentParams{
			ContentID: args[1],
			MediaType: domain.MediaTypeTV,
			Season:    seasonNum,
			Episode:   episodeNum,
		}, nil
	}

	return session.ContentParams{}, fmt.Errorf("unknown media type %q", args[0])
}

// runSetupFlow prompts for the content service URL and token.
func runSetupFlow(cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to Strand!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	var serverURL string
	for {
		fmt.Print("Enter your content service URL (e.g., https://media.example.com): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL = strings.TrimSpace(input)
		if serverURL == "" {
			fmt.Println("URL cannot be empty. Please try again.")
			continue
		}
		break
	}

	fmt.Print("Enter your access token (input hidden): ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	cfg.Server.URL = serverURL
	cfg.Server.Token = token

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run strand again to start playback.")
	return nil
}

// browseCache adapts the store's hot cache to the playback gate.
type browseCache struct {
	store *store.Store
}

func (b browseCache) Clear() {
	b.store.ClearMemoryCache()
}

// routeState is the navigation boundary for the single-screen CLI: route
// parameters are tracked for deep-link consistency but there is no outer
// router to move.
type routeState struct {
	logger   *slog.Logger
	onChange func(session.ContentParams)

	current domain.RouteParams
}

func (r *routeState) Back()                                {}
func (r *routeState) ToMediaInfo(string, domain.MediaType) {}
func (r *routeState) ToWatch(params domain.RouteParams)    { r.current = params }

func (r *routeState) SetRouteParams(params domain.RouteParams) {
	r.current = params
	r.logger.Debug("route params updated",
		"contentID", params.ContentID, "season", params.Season, "episode", params.Episode)
	if r.onChange != nil {
		r.onChange(session.ContentParams{
			ContentID: params.ContentID,
			MediaType: params.MediaType,
			Season:    params.Season,
			Episode:   params.Episode,
		})
	}
}
