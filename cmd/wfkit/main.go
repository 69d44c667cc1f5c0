package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"

	"github.com/me/wfkit/internal/cli"
	"github.com/me/wfkit/internal/planner"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()
	cmd := cli.NewRootCmd(cli.WithVersion(version))

	// A failed planner tool reports on stderr; its stdout often holds the
	// rest of the story.
	errorHandler := func(w io.Writer, styles fang.Styles, err error) {
		fang.DefaultErrorHandler(w, styles, err)
		var te *planner.ToolError
		if errors.As(err, &te) && strings.TrimSpace(te.Stderr) != "" && strings.TrimSpace(te.Stdout) != "" {
			fmt.Fprintln(w, strings.TrimSpace(te.Stdout))
		}
	}

	if err := fang.Execute(ctx, cmd,
		fang.WithVersion(version),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		os.Exit(1)
	}
}
