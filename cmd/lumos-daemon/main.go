package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lumos/internal/audio"
	"lumos/internal/chat"
	"lumos/internal/command"
	"lumos/internal/companion"
	"lumos/internal/config"
	"lumos/internal/device/bridge"
	"lumos/internal/device/espeak"
	"lumos/internal/device/inbox"
	"lumos/internal/device/mic"
	"lumos/internal/device/speech"
	"lumos/internal/ipc"
	"lumos/internal/notify"
	"lumos/internal/playback"
	"lumos/internal/prefs"
	"lumos/internal/proxy"
	"lumos/internal/session"
	"lumos/internal/voice"
	"lumos/pkg/stt"
)

// lowest level other applications are ducked to, in percent
const duckFloor = 10

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.Level(),
	})))

	log.Info("Booting up", "output", cfg.Output, "input", cfg.Input)

	if err := run(cfg); err != nil {
		log.Error("Daemon stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		return err
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithHTTPClient(httpClient),
	)

	store, err := prefs.Open(cfg.Prefs)
	if err != nil {
		return err
	}
	p := store.Get()

	log.Debug("Loaded preferences", "house", p.House, "mood", p.Mood)

	var (
		out     voice.Synthesizer
		in      voice.Recognizer
		player  *playback.Speaker
		browser *bridge.Bridge
	)

	if cfg.Output == "bridge" || cfg.Input == "bridge" {
		browser = bridge.New(log.Default().With("component", "bridge"))
	}

	switch {
	case !p.VoiceEnabled || cfg.Output == "none":
		log.Info("Speech output off, replies are text only")
	case cfg.Output == "openai":
		player = playback.NewSpeaker()
		sc := speech.Config{
			Client:  client,
			Model:   cfg.TTSModel,
			Voice:   cfg.TTSVoice,
			Enabled: true,
			Player:  player,
			Logger:  log.Default().With("component", "speech"),
		}
		if cfg.Duck {
			sc.Ducker = audio.NewDucker(nil, []string{"lumos-daemon"}, duckFloor)
		}
		out = speech.New(sc)
	case cfg.Output == "espeak":
		es, err := espeak.New()
		if err != nil {
			log.Error("Failed to init espeak", "err", err)
			return err
		}
		defer es.Close()
		out = es
	case cfg.Output == "bridge":
		out = browser
	}

	if cfg.Input == "mic" || cfg.Input == "inbox" {
		tr, closeTr, err := transcriber(cfg, client)
		if err != nil {
			log.Error("Failed to init transcriber", "stt", cfg.STT, "err", err)
			return err
		}
		defer closeTr()

		log.Debug("Loaded transcriber", "stt", cfg.STT)

		if cfg.Input == "mic" {
			rec := audio.NewRecorder()
			if err := rec.Init(); err != nil {
				log.Error("Failed to init audio", "err", err)
				return err
			}
			defer rec.Close()
			in = mic.New(rec, tr, log.Default().With("component", "mic"))
		} else {
			ib, err := inbox.New(inbox.Config{
				Dir:    cfg.InboxDir,
				Logger: log.Default().With("component", "inbox"),
			}, tr)
			if err != nil {
				return err
			}
			in = ib
		}
	} else if cfg.Input == "bridge" {
		in = browser
	}

	engine := voice.NewEngine(out, in,
		voice.WithSettings(p.Voice),
		voice.WithLogger(log.Default().With("component", "voice")),
	)

	lexicon := command.DefaultLexicon()
	pal := companion.New(
		chat.New(chat.Config{
			APIKey:     cfg.Chat.APIKey,
			BaseURL:    cfg.Chat.BaseURL,
			Model:      cfg.Chat.Model,
			Headers:    cfg.ChatHeaders(),
			HTTPClient: httpClient,
			Logger:     log.Default().With("component", "chat"),
		}),
		store,
		lexicon,
		log.Default().With("component", "companion"),
	)

	opts := []session.Option{session.WithLogger(log.Default().With("component", "session"))}
	if cfg.Input == "mic" && cfg.Earcon != "" {
		if player == nil {
			player = playback.NewSpeaker()
		}
		opts = append(opts, session.WithEarcon(notify.NewEarcon(cfg.Earcon, player, p.Voice.Volume)))
	}
	ctl := session.NewController(engine, lexicon, pal.Handlers(), opts...)

	d := &daemon{engine: engine, ctl: ctl, prefs: store}

	errs := make(chan error, 2)
	if browser != nil {
		go func() {
			if err := browser.Serve(ctx, cfg.BridgeAddr); err != nil {
				errs <- err
			}
		}()
	}
	go func() {
		errs <- ipc.Serve(ctx, cfg.Socket, d.handle, log.Default().With("component", "ipc"))
	}()

	log.Info("Boot up - successful",
		"socket", cfg.Socket,
		"voice", engine.VoiceSupported(),
		"recognition", engine.RecognitionSupported(),
	)

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		engine.StopSpeaking()
		engine.StopListening()
		return nil
	case err := <-errs:
		if err != nil {
			log.Error("Server failed", "err", err)
		}
		return err
	}
}

// transcriber builds the configured speech-to-text backend. The returned
// close func is never nil.
func transcriber(cfg *config.Config, client openai.Client) (stt.Transcriber, func(), error) {
	switch cfg.STT {
	case "whisper":
		w, err := stt.NewWhisper(cfg.WhisperModel)
		if err != nil {
			return nil, nil, err
		}
		return w, func() { w.Close() }, nil
	case "whisper-cli":
		return stt.NewCLI(cfg.WhisperBin, cfg.WhisperModel), func() {}, nil
	default:
		return stt.NewOpenAI(client, cfg.STTModel), func() {}, nil
	}
}
