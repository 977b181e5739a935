package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "calview/internal/log"
)

// Default viewport for the rendered /calendar page.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// readySelector matches the marker the calendar page sets once rendered.
const readySelector = `[data-ready="true"]`

// Options configures a snapshot of the calendar page.
type Options struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// View and Date optionally override the session navigator for the
	// captured page ("month"/"week"/"day", "YYYY-MM-DD").
	View string
	Date string

	// OutputPath receives the PNG.
	OutputPath string

	// Width and Height are the viewport in pixels. Zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeout.
	Timeout time.Duration

	// Username and Password are sent as HTTP Basic Auth when set.
	Username string
	Password string

	// ExecPath overrides the Chromium binary chromedp would discover.
	ExecPath string
}

// ErrMissingOption is wrapped by validation failures.
var ErrMissingOption = errors.New("capture: missing option")

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return fmt.Errorf("%w: BaseURL", ErrMissingOption)
	}
	if o.OutputPath == "" {
		return fmt.Errorf("%w: OutputPath", ErrMissingOption)
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PageURL returns the /calendar URL for the configured view and date.
func (o Options) PageURL() (string, error) {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return "", fmt.Errorf("capture: parse base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/calendar"
	q := u.Query()
	if o.View != "" {
		q.Set("view", o.View)
	}
	if o.Date != "" {
		q.Set("date", o.Date)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BaseURLFor returns the loopback http URL of a bound listener address.
// Wildcard hosts ("0.0.0.0", "::") are reached through 127.0.0.1.
func BaseURLFor(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Hook returns a function that captures opts on every call, for use as a
// post-refresh hook.
func Hook(opts Options) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return CapturePNG(ctx, opts)
	}
}

// CapturePNG renders the calendar page in headless Chromium, waits for the
// ready marker and writes a full-page PNG to opts.OutputPath. The file is
// replaced atomically so /preview.png never serves a partial image.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	target, err := opts.PageURL()
	if err != nil {
		return err
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{
			"Authorization": "Basic " + cred,
		}))
	}
	tasks = append(tasks,
		chromedp.Navigate(target),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	appLog.Info("calendar snapshot captured",
		"url", target,
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
