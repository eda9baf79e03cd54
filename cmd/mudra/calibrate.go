package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
)

var calibrateFlags struct {
	pair    string
	jsonOut bool
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <recording>",
	Short: "Suggest hysteresis thresholds from a recording",
	Long: `Analyzes a landmark recording that alternates between holding and
releasing each gesture, and suggests enter/exit thresholds per finger pair.
Record at the normal working distance from the camera.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return calibrateRecording(args[0])
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().StringVar(&calibrateFlags.pair, "pair", "", "calibrate a single pair (thumb_index, thumb_middle, index_middle, middle_ring, ring_pinky)")
	calibrateCmd.Flags().BoolVar(&calibrateFlags.jsonOut, "json", false, "print a thresholds block for the tuning file")
}

func calibrateRecording(path string) error {
	frames, err := readRecording(path)
	if err != nil {
		return err
	}

	pairs := gesture.Pairs()
	if calibrateFlags.pair != "" {
		p, err := gesture.ParsePair(calibrateFlags.pair)
		if err != nil {
			return err
		}
		pairs = []gesture.Pair{p}
	}

	thresholds := config.Default().Thresholds
	calibrated := 0

	if !calibrateFlags.jsonOut {
		fmt.Printf("%-13s %8s %8s %8s %8s %8s\n", "pair", "samples", "low", "high", "enter", "exit")
	}

	for _, p := range pairs {
		distances := gesture.CollectDistances(frames, p)
		s, err := gesture.Calibrate(p, distances)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: skipped: %v\n", p, err)
			continue
		}
		calibrated++
		setThreshold(&thresholds, p, s)
		if !calibrateFlags.jsonOut {
			fmt.Printf("%-13s %8d %8.3f %8.3f %8.3f %8.3f\n", s.Pair, s.Samples, s.Low, s.High, s.Enter, s.Exit)
		}
	}

	if calibrated == 0 {
		return fmt.Errorf("no pair produced a calibration; the recording must hold and release each gesture")
	}

	if calibrateFlags.jsonOut {
		// Pairs that did not calibrate keep their default band.
		out, err := json.MarshalIndent(map[string]config.Thresholds{"thresholds": thresholds}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	return nil
}

// setThreshold writes one suggestion into the thresholds block.
func setThreshold(t *config.Thresholds, p gesture.Pair, s gesture.Suggestion) {
	band := config.PairThresholds{Enter: s.Enter, Exit: s.Exit}
	switch p {
	case gesture.ThumbIndex:
		t.ThumbIndex = band
	case gesture.ThumbMiddle:
		t.ThumbMiddle = band
	case gesture.IndexMiddle:
		t.IndexMiddle = band
	case gesture.MiddleRing:
		t.MiddleRing = band
	case gesture.RingPinky:
		t.RingPinky = band
	}
}
