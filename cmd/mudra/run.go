package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/daemon"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/logutil"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

var runFlags struct {
	listen   string
	dbPath   string
	tuning   string
	tracker  string
	injector string
	static   string
	dryRun   bool
	detach   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gesture-to-pointer service",
	Long: `Starts the hand tracker subprocess, the pointer pipeline and the control
server, and keeps running until stopped by a signal or POST /api/shutdown.`,
	Args: cobra.NoArgs,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.listen, "listen", "", "control server address (env MUDRA_LISTEN, default :8090)")
	runCmd.Flags().StringVar(&runFlags.dbPath, "db", "", "database path (env MUDRA_DB, default ~/.mudra/mudra.db)")
	runCmd.Flags().StringVar(&runFlags.tuning, "config", "", "tuning file (env MUDRA_CONFIG)")
	runCmd.Flags().StringVar(&runFlags.tracker, "tracker", "", "hand tracker command (env MUDRA_TRACKER)")
	runCmd.Flags().StringVar(&runFlags.injector, "injector", "", "pointer injector command (env MUDRA_INJECTOR)")
	runCmd.Flags().StringVar(&runFlags.static, "static", "", "directory with the web console")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "print pointer commands instead of running an injector")
	runCmd.Flags().BoolVarP(&runFlags.detach, "detach", "d", false, "run in the background")
}

func runService(cmd *cobra.Command, args []string) error {
	env, err := config.ParseEnv()
	if err != nil {
		return err
	}
	if env.Verbose {
		logutil.SetVerbose(true)
	}

	listen := firstNonEmpty(runFlags.listen, env.Listen)
	trackerCmd := firstNonEmpty(runFlags.tracker, env.Tracker)
	injectorCmd := firstNonEmpty(runFlags.injector, env.Injector)
	tuningFile := firstNonEmpty(runFlags.tuning, env.Tuning)

	if trackerCmd == "" {
		return fmt.Errorf("a hand tracker is required (--tracker or MUDRA_TRACKER); it must write one landmark tick per line to stdout")
	}
	if injectorCmd == "" && !runFlags.dryRun {
		return fmt.Errorf("a pointer injector is required (--injector or MUDRA_INJECTOR), or pass --dry-run to print commands")
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	if runFlags.detach && !daemon.IsChild() {
		child, err := daemon.Daemonize(filepath.Join(dataDir, "mudra.pid"))
		if err != nil {
			return fmt.Errorf("failed to detach: %w", err)
		}
		fmt.Printf("Service detached (pid %d), control API on %s\n", child.Pid, listen)
		return nil
	}

	tuning := config.Default()
	if tuningFile != "" {
		if tuning, err = config.Load(tuningFile); err != nil {
			return err
		}
		log.Printf("Loaded tuning from %s", tuningFile)
	}

	dbPath := firstNonEmpty(runFlags.dbPath, env.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "mudra.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// Without an explicit tuning file the active profile wins.
	if tuningFile == "" {
		if profile, err := st.Profiles().Active(); err == nil {
			applied := config.Default()
			if err := json.Unmarshal(profile.Tuning, &applied); err == nil && applied.Validate() == nil {
				tuning = applied
				log.Printf("Using active profile %q", profile.Name)
			} else {
				log.Printf("Ignoring active profile %q: stored tuning is invalid", profile.Name)
			}
		}
	}

	logutil.Debugf("effective tuning: alpha=%v decay=%d frames, screen=%dx%d, hand=%s",
		tuning.SmoothingAlpha, tuning.DecayFrames, tuning.Screen.Width, tuning.Screen.Height, tuning.Hand)

	name, cmdArgs := splitCommand(trackerCmd)
	source, err := landmark.NewExecSource(landmark.ExecConfig{
		Command: name,
		Args:    cmdArgs,
		Prefer:  tuning.PreferredHand(),
	})
	if err != nil {
		return err
	}

	var port dispatch.Port
	if runFlags.dryRun {
		log.Println("Dry run: pointer commands go to stdout")
		port = dispatch.NewWriterPort(os.Stdout)
	} else {
		name, cmdArgs := splitCommand(injectorCmd)
		port, err = dispatch.NewExecPort(dispatch.ExecConfig{Command: name, Args: cmdArgs})
		if err != nil {
			return err
		}
	}

	a, err := app.New(app.Config{
		Source: source,
		Port:   port,
		Store:  st,
		Tuning: tuning,
	})
	if err != nil {
		return err
	}

	// Pick up the persisted enable switch from the last run.
	if enabled, err := st.Settings().GetBool(store.SettingEnabled, true); err == nil && !enabled {
		a.SetEnabled(false)
		log.Println("Pointer control starts disabled (persisted setting)")
	}

	if err := a.Start(); err != nil {
		return err
	}

	stopCh := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stopCh) }) }

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Signal received, shutting down")
		requestStop()
	}()

	static := runFlags.static
	if static == "" {
		static = findWebDir(dataDir)
	}
	if static != "" {
		log.Printf("Serving web console from %s", static)
	}

	srv := server.New(server.Config{
		App:        a,
		Store:      st,
		StaticDir:  static,
		OnShutdown: requestStop,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe(listen)
	}()

	select {
	case <-stopCh:
	case err := <-serverErr:
		a.Stop()
		return fmt.Errorf("control server: %w", err)
	case <-a.Done():
		log.Println("Landmark source ended, shutting down")
	}

	a.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error stopping control server: %v", err)
	}

	return nil
}

// resolveDataDir returns ~/.mudra, creating it if needed.
func resolveDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}

// findWebDir searches for the web console in common locations.
// It checks: "web", "../web", "../../web", and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// splitCommand splits a command string into the executable and its
// arguments. Arguments with spaces are not supported; wrap them in a
// script instead.
func splitCommand(s string) (string, []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
