// Package main provides a pointer injector for Linux/X11.
// It reads pointer commands as JSON lines from stdin and executes them
// with xdotool, exiting when stdin closes.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"

	"github.com/ayusman/mudra/internal/pointer"
)

// scrollUnit is how many scroll delta units make one wheel detent.
// Deltas below one detent accumulate instead of being dropped.
const scrollUnit = 10.0

// X11 wheel buttons.
const (
	wheelUp   = "4"
	wheelDown = "5"
)

var scrollAccum float64

func main() {
	log.SetPrefix("xdotool-injector: ")
	log.SetFlags(0)

	if _, err := exec.LookPath("xdotool"); err != nil {
		log.Fatal("xdotool not found in PATH")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd pointer.Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			log.Printf("skipping bad command: %v", err)
			continue
		}

		// One failed injection must not kill the stream; the desktop
		// may be locked or switching displays.
		if err := execute(cmd); err != nil {
			log.Printf("%s: %v", cmd, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read stdin: %v", err)
	}
}

// execute maps one pointer command onto an xdotool invocation.
func execute(cmd pointer.Command) error {
	switch cmd.Kind {
	case pointer.KindMoveTo:
		return runXdotool("mousemove", strconv.Itoa(cmd.X), strconv.Itoa(cmd.Y))
	case pointer.KindMouseDown:
		return runXdotool("mousedown", buttonArg(cmd.Button))
	case pointer.KindMouseUp:
		return runXdotool("mouseup", buttonArg(cmd.Button))
	case pointer.KindScroll:
		return scroll(cmd.Delta)
	}
	return fmt.Errorf("unknown command kind %d", cmd.Kind)
}

// scroll converts a delta into whole wheel detents, carrying the
// remainder into the next call. Positive deltas scroll down.
func scroll(delta int) error {
	scrollAccum += float64(delta) / scrollUnit
	detents := int(scrollAccum)
	if detents == 0 {
		return nil
	}
	scrollAccum -= float64(detents)

	button := wheelDown
	if detents < 0 {
		button = wheelUp
		detents = -detents
	}
	return runXdotool("click", "--repeat", strconv.Itoa(detents), button)
}

// buttonArg maps a pointer button onto the X11 button number.
func buttonArg(b pointer.Button) string {
	if b == pointer.ButtonRight {
		return "3"
	}
	return "1"
}

// runXdotool executes one xdotool command and returns any error.
func runXdotool(args ...string) error {
	cmd := exec.Command("xdotool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
