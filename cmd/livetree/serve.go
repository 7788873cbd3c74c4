package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/server"
	"github.com/livetree-go/livetree/pkg/vdom"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application server",
		Long: `Run a small demo application that exercises every handler modifier:
a debounced and cached search box, a throttled scroll counter, an
optimistic dark-mode toggle, and a client-state category filter.

Connect a client to ws://<addr>/livetree/ws; metrics are at /metrics.

Examples:
  livetree serve
  livetree serve --addr=:3000 --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, logLevel)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func runServe(addr, logLevel string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv, err := server.New(server.Config{
		Address:        addr,
		NewApplication: func() server.Application { return newDemoApp() },
		Modifiers: map[string][]protocol.Modifier{
			"search": {
				protocol.Debounce(300*time.Millisecond, 2*time.Second),
				protocol.Cache(30*time.Second, "query"),
			},
			"scroll":    {protocol.Throttle(100*time.Millisecond, true, true)},
			"toggle":    {protocol.Optimistic()},
			"setFilter": {protocol.ClientState("filter")},
			"reset":     nil,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// demoApp is the example application behind `livetree serve`.
type demoApp struct {
	items    []string
	query    string
	filter   string
	scrolls  int
	darkMode bool
}

func newDemoApp() *demoApp {
	return &demoApp{
		items: []string{
			"books: The Go Programming Language",
			"books: Structure and Interpretation",
			"music: Kind of Blue",
			"music: In Rainbows",
			"film: Playtime",
		},
	}
}

func (a *demoApp) Render(context.Context) *vdom.VNode {
	theme := "light"
	if a.darkMode {
		theme = "dark"
	}

	list := vdom.Ul(vdom.ID("results"))
	for _, item := range a.items {
		if a.query != "" && !strings.Contains(item, a.query) {
			continue
		}
		if a.filter != "" && !strings.HasPrefix(item, a.filter+":") {
			continue
		}
		list.Children = append(list.Children, vdom.Li(vdom.Key(item), item))
	}

	return vdom.Div(vdom.Class("app "+theme),
		vdom.H1("Livetree demo"),
		vdom.Input(vdom.Type("search"), vdom.Name("query"), vdom.Value(a.query)),
		vdom.Input(vdom.Type("checkbox"), vdom.Name("dark"), vdom.Checked(a.darkMode)),
		vdom.Span(vdom.ID("scrolls"), fmt.Sprintf("scroll events: %d", a.scrolls)),
		list,
	)
}

func (a *demoApp) Handlers() server.HandlerMap {
	return server.HandlerMap{
		"search": func(_ context.Context, params map[string]any) error {
			a.query = server.StringParam(params, "query")
			return nil
		},
		"scroll": func(context.Context, map[string]any) error {
			a.scrolls++
			return nil
		},
		"toggle": func(context.Context, map[string]any) error {
			a.darkMode = !a.darkMode
			return nil
		},
		"setFilter": func(_ context.Context, params map[string]any) error {
			filter := server.StringParam(params, "filter")
			switch filter {
			case "", "books", "music", "film":
				a.filter = filter
				return nil
			default:
				return server.Validationf("unknown category %q", filter)
			}
		},
		"reset": func(context.Context, map[string]any) error {
			a.query = ""
			a.filter = ""
			a.scrolls = 0
			a.darkMode = false
			return nil
		},
	}
}
