package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/pointer"
)

var replayFlags struct {
	tuning  string
	fps     int
	jsonOut bool
}

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Replay a landmark recording through the pipeline",
	Long: `Feeds a recorded landmark script (one tracker tick per line, "-" for
stdin) through the full pipeline and prints the resulting pointer commands
to stdout, one per line. No injector runs and no database is touched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replayScript(args[0])
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayFlags.tuning, "config", "", "tuning file (env MUDRA_CONFIG)")
	replayCmd.Flags().IntVar(&replayFlags.fps, "fps", 0, "pace the replay at this frame rate (0 = no pacing)")
	replayCmd.Flags().BoolVar(&replayFlags.jsonOut, "json", false, "print commands in injector wire format")
}

// printPort renders each command in its human-readable form.
type printPort struct{}

func (printPort) Dispatch(cmd pointer.Command) error {
	_, err := fmt.Println(cmd)
	return err
}

func (printPort) Close() error { return nil }

func replayScript(path string) error {
	frames, err := readRecording(path)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("recording %s contains no ticks", path)
	}

	tuning := config.Default()
	if file := firstNonEmpty(replayFlags.tuning, envTuningFile()); file != "" {
		if tuning, err = config.Load(file); err != nil {
			return err
		}
	}

	source := landmark.NewScriptSource(frames)
	if replayFlags.fps > 0 {
		source.SetInterval(time.Second / time.Duration(replayFlags.fps))
	}

	var port dispatch.Port = printPort{}
	if replayFlags.jsonOut {
		port = dispatch.NewWriterPort(os.Stdout)
	}

	a, err := app.New(app.Config{
		Source: source,
		Port:   port,
		Tuning: tuning,
	})
	if err != nil {
		return err
	}

	if err := a.Start(); err != nil {
		return err
	}
	<-a.Done()
	a.Stop()

	c := a.Snapshot().Counters
	log.Printf("Replayed %d frames (%d dropped): %d commands, %d clicks, %d drags, %d scrolls",
		c.Frames, c.DroppedFrames, c.Commands, c.Clicks, c.Drags, c.Scrolls)
	return nil
}

// readRecording loads a landmark script from a file or stdin.
func readRecording(path string) ([]*landmark.Frame, error) {
	if path == "-" {
		return landmark.ReadScript(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	frames, err := landmark.ReadScript(f)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return frames, nil
}

func envTuningFile() string {
	env, err := config.ParseEnv()
	if err != nil {
		return ""
	}
	return env.Tuning
}
