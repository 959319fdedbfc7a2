package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tubul-npx/internal/config"
	"github.com/coreman2200/tubul-npx/internal/firmware"
	"github.com/coreman2200/tubul-npx/internal/frame"
	"github.com/coreman2200/tubul-npx/internal/hue"
	"github.com/coreman2200/tubul-npx/internal/led"
	"github.com/coreman2200/tubul-npx/internal/npx"
	"github.com/coreman2200/tubul-npx/internal/ws"
)

func main() {
	// ---- Flags (config.yaml can override most) ----
	var (
		leds      = flag.Int("leds", 24, "LEDs in the string")
		shift     = flag.Uint("shift", 5, "wheel step exponent (5 -> period 192)")
		engines   = flag.Int("engines", 2, "transfer engine count")
		split     = flag.String("split", "aliased", "view plan: aliased | disjoint")
		mode      = flag.String("mode", "poll", "completion wait: poll | irq")
		fps       = flag.Int("fps", 0, "frame pacing (0 free-runs)")
		frames    = flag.Int("frames", 0, "frames to run (0 = until interrupted)")
		driver    = flag.String("driver", "sim", "output: sim | spi")
		spiDev    = flag.String("spi-dev", "", "spireg port name (empty = first)")
		addr      = flag.String("addr", ":8080", "HTTP listen address")
		cfgPath   = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly   = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		realtime  = flag.Bool("realtime", true, "simulate real transfer timing")
		debugLogs = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if !*debugLogs {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*cfgPath); err != nil {
		log.Warn().Err(err).Str("path", *cfgPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params ----
	eLEDs, eShift, eEngines := *leds, *shift, *engines
	eSplit, eMode, eDriver := *split, *mode, *driver
	eFPS, eFrames, eAddr, eSPIDev := *fps, *frames, *addr, *spiDev
	if cfg != nil {
		if cfg.LEDs > 0 {
			eLEDs = cfg.LEDs
		}
		if cfg.StepShift > 0 {
			eShift = cfg.StepShift
		}
		if cfg.Engines > 0 {
			eEngines = cfg.Engines
		}
		if cfg.Split != "" {
			eSplit = cfg.Split
		}
		if cfg.Mode != "" {
			eMode = cfg.Mode
		}
		if cfg.Driver != "" {
			eDriver = cfg.Driver
		}
		if cfg.FPS > 0 {
			eFPS = cfg.FPS
		}
		if cfg.Frames > 0 {
			eFrames = cfg.Frames
		}
		if cfg.Addr != "" {
			eAddr = cfg.Addr
		}
		if cfg.SPIDev != "" {
			eSPIDev = cfg.SPIDev
		}
	}
	if *simOnly {
		eDriver = "sim"
	}

	// ---- Shared colors array and engine views ----
	buf, err := frame.New(eLEDs)
	if err != nil {
		log.Fatal().Err(err).Msg("buffer")
	}
	var views []frame.View
	if cfg != nil && len(cfg.Views) > 0 {
		for _, v := range cfg.Views {
			views = append(views, frame.View{OffsetBytes: v.OffsetBytes, LEDs: v.LEDs, IRQ: v.IRQ})
		}
	} else if eSplit == "disjoint" {
		views = frame.DisjointSplit(eLEDs, eEngines)
	} else {
		views = frame.AliasedSplit(eLEDs, eEngines)
	}

	fwMode := firmware.Poll
	if eMode == "irq" {
		fwMode = firmware.IRQ
	}

	// ---- Sinks: websocket broadcast chained onto sim or SPI output ----
	state := ws.NewState(eLEDs)
	sinks := make([]led.Driver, len(views))
	for i, v := range views {
		var base led.Driver = led.NewSim()
		if eDriver == "spi" {
			drv, err := led.NewNRZ(eSPIDev, v.LEDs)
			if err != nil {
				log.Warn().Err(err).Int("engine", i).Msg("SPI init failed; falling back to SIM")
			} else {
				base = drv
			}
		}
		sinks[i] = state.Sink(i, base)
	}

	timing := npx.Timing{}
	if *realtime {
		timing = npx.DefaultTiming
	}
	fw, err := firmware.New(firmware.Config{
		Wheel:  hue.New(eShift),
		Buffer: buf,
		Views:  views,
		Mode:   fwMode,
		Timing: timing,
		Sinks:  sinks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("firmware init")
	}
	state.Attach(fw)

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/health", state.HandleHealth)
	srv := &http.Server{
		Addr:         eAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx, eFrames, eFPS) }()
	go func() {
		log.Info().Str("addr", eAddr).Str("driver", eDriver).Str("mode", fwMode.String()).
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-ch:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("validation loop failed")
		} else {
			log.Info().Uint64("frames", fw.Frames()).Msg("validation loop finished")
		}
		cancel()
	}

	_ = srv.Close()
	for _, s := range sinks {
		_ = s.Close()
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
