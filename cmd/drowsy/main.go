// drowsy: webcam drowsiness monitor with a browser dashboard
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/alert"
	"github.com/teslashibe/go-drowsy/pkg/eventlog"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
	"github.com/teslashibe/go-drowsy/pkg/mqttpub"
	"github.com/teslashibe/go-drowsy/pkg/perception/opencv"
	"github.com/teslashibe/go-drowsy/pkg/web"
)

const shutdownGrace = 5 * time.Second

func main() {
	autostart := flag.Bool("start", false, "Start monitoring immediately")
	debug := flag.Bool("debug", false, "Enable debug logging")
	webDir := flag.String("web", "./web", "Dashboard asset directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drowsy: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *autostart, *webDir); err != nil {
		log.Error("drowsy exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, autostart bool, webDir string) error {
	store, err := eventlog.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	player := alert.NewCommandPlayer(cfg.SoundPlayer, cfg.SoundFile)
	if err := player.Check(); err != nil {
		// Playback failures are contained per alert; warn once up front.
		log.Warn("alert sound unavailable", "error", err)
	}
	dispatcher := alert.NewDispatcher(player)
	defer dispatcher.Wait()

	srv := web.NewServer(ctx, web.Options{
		Addr:      cfg.ListenAddr(),
		StaticDir: webDir,
		Events:    store,
	})

	opts := monitor.Options{
		Config:   cfg.Drowsiness(),
		Open:     opencv.Opener(perceptionConfig(cfg)),
		Recorder: store,
		Alerter:  dispatcher,
		Sink:     srv,
	}

	if cfg.MQTTEnabled() {
		client, err := mqttpub.Connect(mqttpub.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		notifier := mqttpub.NewNotifier(client, cfg.MQTTTopic)
		pubCtx, stopPub := context.WithCancel(context.Background())
		pubDone := make(chan struct{})
		go func() {
			notifier.Start(pubCtx)
			close(pubDone)
		}()
		defer func() {
			stopPub()
			<-pubDone
		}()
		opts.Notifier = notifier
	}

	mon := monitor.New(opts)
	srv.SetController(mon)
	srv.PublishStatus(mon.Snapshot())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	if autostart {
		if err := mon.Start(ctx); err != nil {
			log.Error("autostart failed", "error", err)
		}
	}

	log.Info("drowsy ready",
		"dashboard", fmt.Sprintf("http://localhost%s", cfg.ListenAddr()),
		"db", store.Path(),
		"threshold", cfg.EARThreshold,
		"frames", cfg.EARFrames)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	}

	if err := mon.Stop(); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
		log.Warn("stop monitor", "error", err)
	}
	waitTimeout(mon.Wait, shutdownGrace)

	if err := srv.Shutdown(); err != nil {
		log.Warn("dashboard shutdown", "error", err)
	}
	return nil
}

func perceptionConfig(cfg *config.Config) opencv.Config {
	pc := opencv.DefaultConfig()
	pc.CameraIndex = cfg.CameraIndex
	pc.Width = cfg.CameraWidth
	pc.Height = cfg.CameraHeight
	pc.FaceModel = cfg.FaceModel
	pc.FaceConfidence = cfg.FaceConfidence
	pc.LandmarkModel = cfg.LandmarkModel
	pc.LandmarkInput = cfg.LandmarkInput
	pc.StreamVideo = cfg.StreamVideo
	return pc
}

// waitTimeout runs wait but gives up after d; a camera read has no timeout of
// its own and may never return.
func waitTimeout(wait func(), d time.Duration) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		log.Warn("detection loop did not exit in time", "timeout", d)
	}
}
