// Package daemon detaches the pointer service into the background and
// talks to an already-running instance over its control API.
package daemon

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sevlyar/go-daemon"
)

// childEnvVar marks the detached child process.
const childEnvVar = "MUDRA_DAEMON_CHILD"

// Daemonize detaches the process and returns the child process handle.
// A non-nil process means this is the parent and the child is running;
// nil means this is the child itself.
func Daemonize(pidFile string) (*os.Process, error) {
	ctx := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		WorkDir:     "/",
		Umask:       027,
		Args:        os.Args,
		Env:         append(os.Environ(), childEnvVar+"=1"),
	}

	child, err := ctx.Reborn()
	if err != nil {
		return nil, fmt.Errorf("failed to daemonize: %w", err)
	}
	return child, nil
}

// IsChild reports whether this process is the detached child.
func IsChild() bool {
	return os.Getenv(childEnvVar) == "1"
}

// StopServer asks the instance listening on addr to shut down via its
// control API.
func StopServer(addr string) error {
	url := BaseURL(addr) + "/api/shutdown"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return fmt.Errorf("no instance is listening on %s", addr)
		}
		return fmt.Errorf("failed to reach control server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("control server returned %s", resp.Status)
	}
	return nil
}

// BaseURL turns a listen address ("8090", ":8090", "host:8090") into a
// base URL for the control API.
func BaseURL(addr string) string {
	if !strings.Contains(addr, ":") {
		if _, err := strconv.Atoi(addr); err == nil {
			addr = ":" + addr
		}
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
