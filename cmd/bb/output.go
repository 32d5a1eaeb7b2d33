package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/steveyegge/beadboard/internal/ui/api"
)

// outputJSON outputs data as pretty-printed JSON to stdout.
func outputJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

// FatalError writes an error message to stderr and exits with code 1.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// hintFor suggests a fix for the errors users hit most often.
func hintFor(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("is the board server running? Start it with 'bb serve' (tried %s)", serverURL)
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		return "pass the server's auth token with --token or BB_AUTH_TOKEN"
	case http.StatusForbidden:
		return "switch to a user who may edit with 'bb user <name>'"
	case http.StatusNotFound:
		return "list the board with 'bb list' to see issue ids"
	case http.StatusBadGateway:
		return "the remote store rejected the change; the board was rolled back, retry the command"
	}
	return ""
}

// checkErr exits with a hint when err is non-nil.
func checkErr(err error) {
	if err == nil {
		return
	}
	if hint := hintFor(err); hint != "" {
		FatalErrorWithHint(err.Error(), hint)
	}
	FatalError("%v", err)
}
