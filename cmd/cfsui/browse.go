package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/dev"
	"github.com/vango-dev/cfsui/internal/errors"
	"github.com/vango-dev/cfsui/internal/ui"
	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/headless"
	"github.com/vango-dev/cfsui/pkg/middleware"
	"github.com/vango-dev/cfsui/pkg/nav"
)

func browseCmd() *cobra.Command {
	var (
		apiURL string
		raw    bool
		watch  bool
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Render a UI page in the terminal",
		Long: `Run the UI against a live API server without a browser and print
the rendered content region.

The path is a UI path such as /ui/tags/app; it defaults to the index.
With --watch the page is rendered again whenever a server started with
--reload announces a change.

Examples:
  cfsui browse
  cfsui browse /ui/tags/app/files/readme.md
  cfsui browse /ui/stat --api=http://cabinet.internal:8086/api --html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.Client.APIURL = apiURL
			}
			path := cfg.Server.Root + "/"
			if len(args) == 1 {
				path = args[0]
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := newBrowser(cfg, path, stats)
			if err != nil {
				return err
			}
			go b.app.Controller().Run(ctx)
			defer b.app.Controller().Close()

			if err := b.show(ctx, b.app.Controller().Start, raw); err != nil {
				return err
			}
			if stats {
				printStats(b.registry)
			}
			if !watch {
				return nil
			}
			return b.watch(ctx, raw)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "", "API base URL (default from client.api_url)")
	cmd.Flags().BoolVar(&raw, "html", false, "Print HTML instead of text")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Render again when the server reloads")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print navigation metrics")
	return cmd
}

// browser is a headless UI session.
type browser struct {
	cfg      *config.Config
	page     *headless.Page
	app      *ui.App
	http     *http.Client
	registry *prometheus.Registry
	outcome  *outcomeRecorder
}

// loadShell reads the templates from the server's shell page, so edits
// served with --reload are picked up. The embedded shell is used when the
// server cannot be reached.
func (b *browser) loadShell() error {
	shell, err := b.remoteShell()
	if err != nil {
		warn("using embedded templates: %v", err)
		if shell, err = ui.Shell(ui.ShellOptions{}); err != nil {
			return err
		}
	}
	return b.page.LoadMarkup(bytes.NewReader(shell))
}

func (b *browser) remoteShell() ([]byte, error) {
	u, err := url.Parse(b.cfg.Client.APIURL)
	if err != nil {
		return nil, err
	}
	u.Path, u.RawQuery = b.cfg.Server.Root+"/", ""

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if auth := b.cfg.Auth; auth.Enabled() {
		req.SetBasicAuth(auth.Username, auth.Password)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func newBrowser(cfg *config.Config, path string, stats bool) (*browser, error) {
	logger := cfg.Logger(os.Stderr)

	page := headless.New(path)
	httpClient := &http.Client{Timeout: cfg.Client.Timeout}

	fetchOpts := []fetch.Option{
		fetch.WithRetries(cfg.Client.Retries),
		fetch.WithHTTPClient(httpClient),
		fetch.WithLogger(logger),
	}
	if cfg.Auth.Enabled() {
		fetchOpts = append(fetchOpts, fetch.WithBasicAuth(cfg.Auth.Username, cfg.Auth.Password))
	}

	b := &browser{cfg: cfg, page: page, http: httpClient, outcome: &outcomeRecorder{}}
	if err := b.loadShell(); err != nil {
		return nil, err
	}
	observer := nav.Observer(b.outcome)
	if stats {
		b.registry = prometheus.NewRegistry()
		m := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(b.registry),
		)
		observer = nav.MultiObserver(b.outcome, m.Observer())
	}

	app, err := ui.New(page, fetch.New(cfg.Client.APIURL, fetchOpts...),
		ui.WithRoot(cfg.Server.Root),
		ui.WithLogger(logger),
		ui.WithNavOptions(nav.WithPolicy(cfg.NavPolicy()), nav.WithObserver(observer)),
	)
	if err != nil {
		return nil, err
	}
	b.app = app
	page.Bind(app.Controller())
	return b, nil
}

// show runs trigger, waits for the page to settle and prints the content
// region.
func (b *browser) show(ctx context.Context, trigger func() bool, raw bool) error {
	b.outcome.reset()
	trigger()
	if err := b.app.Controller().Wait(ctx); err != nil {
		return err
	}
	if err := b.outcome.err(); err != nil {
		return err
	}

	content, _ := b.page.Region(ui.Region)
	if raw {
		fmt.Println(strings.TrimSpace(content))
		return nil
	}
	fmt.Println(textOf(content))
	return nil
}

// watch re-renders the current page on every reload message until ctx is
// done.
func (b *browser) watch(ctx context.Context, raw bool) error {
	wsURL, err := reloadURL(b.cfg.Client.APIURL)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return errors.New("E301").Wrap(err).
			WithSuggestion("Start the server with `cfsui serve --reload`.")
	}
	defer conn.Close()
	info("watching %s", wsURL)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg dev.ReloadMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch msg.Type {
		case dev.ReloadTypeFull, dev.ReloadTypeCSS:
			fmt.Println(strings.Repeat("-", 40))
			if err := b.loadShell(); err != nil {
				warn("%v", err)
			}
			if err := b.show(ctx, b.app.Controller().Reload, raw); err != nil {
				warn("%v", err)
			}
		case dev.ReloadTypeError:
			warn("server reported: %s", msg.Error)
		}
	}
}

// reloadURL derives the reload socket address from the API URL.
func reloadURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = dev.ReloadPath
	u.RawQuery = ""
	return u.String(), nil
}

// outcomeRecorder remembers the first failure of a navigation.
type outcomeRecorder struct {
	mu      sync.Mutex
	path    string
	failure error
}

func (o *outcomeRecorder) reset() {
	o.mu.Lock()
	o.path, o.failure = "", nil
	o.mu.Unlock()
}

func (o *outcomeRecorder) err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

func (o *outcomeRecorder) Navigated(path, route string, outcome nav.Outcome, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.path = path
	if o.failure == nil && outcome != nav.OutcomeOK {
		o.failure = errors.New("E101").WithDetail(fmt.Sprintf("%s: %s", path, outcome))
	}
}

func (o *outcomeRecorder) Rendered(templateID string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failure == nil && err != nil {
		o.failure = errors.FromError(err, "")
	}
}

func (o *outcomeRecorder) StaleDropped(string) {}

// textOf flattens rendered HTML to readable text: one line per block,
// whitespace collapsed.
func textOf(markup string) string {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return markup
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				flush()
				lines = append(lines, strings.TrimRight(n.Data, "\n"))
				return
			}
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
			return
		case html.ElementNode:
			if n.Data == "pre" {
				pre = true
			}
			if blockElements[n.Data] {
				flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}
	for _, n := range nodes {
		walk(n, false)
	}
	flush()
	return strings.Join(lines, "\n")
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "pre": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "table": true, "ul": true,
	"ol": true, "section": true, "header": true, "nav": true,
}

// printStats writes every collected sample as "name{labels} value".
func printStats(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		warn("gather metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("  %s%s %s\n", mf.GetName(), labelString(m.GetLabel()), sampleValue(mf.GetType(), m))
		}
	}
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func sampleValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprint(m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprint(m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "count=0"
		}
		avg := time.Duration(h.GetSampleSum() / float64(h.GetSampleCount()) * float64(time.Second))
		return fmt.Sprintf("count=%d avg=%s", h.GetSampleCount(), avg.Round(time.Microsecond))
	default:
		return "-"
	}
}
