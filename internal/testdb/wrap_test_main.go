package testdb

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"testing"
)

const (
	// key_DOCKERTESTER_BLOCK is the environment variable that blocks the test binary until a
	// signal is received, so containers of failed tests can be inspected before the process exits.
	key_DOCKERTESTER_BLOCK = "DOCKERTESTER_BLOCK"
)

// WrapTestMain runs the tests and exits with their status code.
func WrapTestMain(m *testing.M) {
	code := m.Run()
	defer func() {
		if envIsTrue(key_DOCKERTESTER_BLOCK) {
			blockUntilSignal(code)
		}
		os.Exit(code)
	}()
}

func blockUntilSignal(code int) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	fmt.Fprintf(os.Stderr, "+++ debug mode: must exit (CTRL+C) manually. (code: %d)\n", code)
	<-sigs
}

func envIsTrue(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
