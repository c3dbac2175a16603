package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/handwheel/internal/app"
	"github.com/ayusman/handwheel/internal/capture"
	"github.com/ayusman/handwheel/internal/chart"
	"github.com/ayusman/handwheel/internal/config"
	"github.com/ayusman/handwheel/internal/server"
	"github.com/ayusman/handwheel/internal/session"
	"github.com/ayusman/handwheel/internal/store"
	"github.com/ayusman/handwheel/internal/tray"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON tuning file")
		addr       = flag.String("addr", "", "viewer listen address (default :8080)")
		cameraID   = flag.Int("camera", 0, "camera device ID")
		dbPath     = flag.String("db", "", "recording database (default ~/.handwheel/handwheel.db)")
		record     = flag.String("record", "", "record the session under this name")
		replayID   = flag.String("replay", "", "replay a recording by ID instead of using the camera")
		plotPath   = flag.String("plot", "", "write the history chart to this .png file on exit")
		useTray    = flag.Bool("tray", false, "show the system tray menu")
	)
	flag.Parse()

	fmt.Println("Handwheel - Two-Hand Steering")

	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: .env not loaded: %v", err)
	}

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = addr
		case "camera":
			cfg.CameraID = cameraID
		}
	})

	st, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()
	log.Printf("Recordings database: %s", st.Path())

	sess, err := session.New(cfg.Converter(), cfg.Session())
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *replayID != "" {
		stats, err := app.Replay(ctx, st, *replayID, sess)
		if err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		fmt.Printf("Replayed %d frames, %d tracked\n", stats.Frames, stats.Tracked)
		writePlot(*plotPath, sess)
		return
	}

	hub := server.NewHub()
	feed := &viewerFeed{hub: hub, session: sess}
	if *useTray {
		feed.tray = tray.New(sess.Mirror())
	}

	application, err := app.New(app.Config{
		Session:       sess,
		Camera:        capture.NewCamera(cfg.GetCameraID()),
		Feed:          feed,
		FPS:           cfg.GetFPS(),
		Store:         st,
		Record:        *record != "",
		RecordingName: *record,
	})
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// The viewer stays up without a camera so the failure is visible there
	if err := application.Start(); err != nil {
		log.Printf("Pipeline not started: %v", err)
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Session:   sess,
		Store:     st,
		Frames:    application,
		Hub:       hub,
	})

	listen := cfg.GetAddr()
	go func() {
		fmt.Printf("Starting server on %s\n", listen)
		if err := srv.ListenAndServe(listen); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if feed.tray != nil {
		feed.tray.OnMirror(sess.SetMirror)
		feed.tray.OnOpen(func() { openBrowser(viewerURL(listen)) })
		feed.tray.OnQuit(stop)
		go func() {
			<-ctx.Done()
			feed.tray.Quit()
		}()
		// systray must own the main goroutine
		feed.tray.Run()
	} else {
		<-ctx.Done()
	}

	application.Stop()
	if rec := application.Recorder(); rec != nil && rec.ID() != "" {
		fmt.Printf("Saved recording %s\n", rec.ID())
	}
	writePlot(*plotPath, sess)
}

// viewerFeed forwards session updates to the WebSocket hub and the tray.
type viewerFeed struct {
	hub     *server.Hub
	tray    *tray.Tray
	session *session.Session
}

func (f *viewerFeed) PublishState(st session.State) {
	f.hub.PublishState(st)
}

func (f *viewerFeed) PublishStatus(status string) {
	f.hub.PublishStatus(status)
	if f.tray != nil {
		f.tray.SetStatus(status)
		f.tray.SetMirror(f.session.Mirror())
	}
}

func openStore(path string) (*store.Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".handwheel", "handwheel.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(path)
}

func writePlot(path string, sess *session.Session) {
	if path == "" {
		return
	}
	radius, angle := sess.History().Series()
	if err := chart.SavePNG(path, chart.Series{Radius: radius, Angle: angle}); err != nil {
		log.Printf("Failed to write chart: %v", err)
		return
	}
	fmt.Printf("Wrote history chart to %s\n", path)
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/charts"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for a viewer web directory in "web", "../web",
// "../../web" and ~/.handwheel/web. Returns "" if none exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handwheel", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
