// File: internal/browser/session.go
// Description: A live chromedp-backed browser session implementing
// schemas.Environment. One session owns one tab for the lifetime of a
// training run; episodes reset it by navigating back to the entry point.

package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/testweaver-cli/api/schemas"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
)

const defaultActionTimeout = 10 * time.Second

// Session drives a single browser tab. It is not safe for concurrent use.
type Session struct {
	id        string
	cfg       config.BrowserConfig
	targetURL string
	logger    *zap.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	limiter *rate.Limiter

	// Per-episode session facts surfaced through UserContext.
	episodeStart      time.Time
	pageViews         int
	successfulActions int
	failedLogins      int

	// jsErrors counts uncaught exceptions the page threw; CDP events arrive
	// on chromedp's goroutine, hence the atomic.
	jsErrors atomic.Int64

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.Environment = (*Session)(nil)

// NewSession launches a browser and opens one tab. The caller must Close the
// session to release the process.
func NewSession(ctx context.Context, cfg config.BrowserConfig, targetURL string, logger *zap.Logger) (*Session, error) {
	if targetURL == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	sessionID := uuid.New().String()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process up now so a missing Chrome binary surfaces
	// here instead of mid-episode.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	aps := cfg.ActionsPerSecond
	if aps <= 0 {
		aps = 2
	}

	s := &Session{
		id:            sessionID,
		cfg:           cfg,
		targetURL:     targetURL,
		logger:        logger.With(zap.String("session_id", sessionID)),
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		limiter:       rate.NewLimiter(rate.Limit(aps), 1),
		episodeStart:  time.Now(),
	}
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*runtime.EventExceptionThrown); ok {
			s.jsErrors.Add(1)
		}
	})

	s.logger.Info("Browser session started.", zap.String("target", targetURL))
	return s, nil
}

// JavaScriptErrors returns the number of uncaught exceptions observed since
// the last Reset. Feeds the bug-discovery results for executed suites.
func (s *Session) JavaScriptErrors() int {
	return int(s.jsErrors.Load())
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Reset navigates back to the entry point and clears the per-episode session
// facts.
func (s *Session) Reset(ctx context.Context) error {
	err := s.run(ctx, s.navigationTimeout(),
		chromedp.Navigate(s.targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate to entry point: %w", err)
	}
	s.settle(ctx)

	s.episodeStart = time.Now()
	s.pageViews = 1
	s.successfulActions = 0
	s.failedLogins = 0
	s.jsErrors.Store(0)
	return nil
}

// Observe captures the current page: location, title, and the element records
// extracted from a full DOM snapshot.
func (s *Session) Observe(ctx context.Context) (schemas.Observation, error) {
	var (
		url, title, dom string
	)
	err := s.run(ctx, defaultActionTimeout,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
	)
	if err != nil {
		return schemas.Observation{}, fmt.Errorf("capture page snapshot: %w", err)
	}

	elements, err := ExtractElements(dom, s.cfg.MaxElements)
	if err != nil {
		return schemas.Observation{}, fmt.Errorf("extract elements: %w", err)
	}

	return schemas.Observation{
		URL:      url,
		Title:    title,
		Elements: elements,
		User:     s.userContext(elements),
	}, nil
}

// Execute performs one action against the live page. Expected failures, a
// stale locator or a slow page, return (false, nil); an error means the
// session itself is unusable.
func (s *Session) Execute(ctx context.Context, action schemas.Action) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	task, err := s.buildTask(action)
	if err != nil {
		s.logger.Debug("Unsupported or malformed action.", zap.String("action", string(action.Type)), zap.Error(err))
		return false, nil
	}

	if runErr := s.run(ctx, defaultActionTimeout, task); runErr != nil {
		if s.browserCtx.Err() != nil || ctx.Err() != nil {
			return false, fmt.Errorf("session unusable: %w", runErr)
		}
		s.noteFailure(action)
		s.logger.Debug("Action failed.",
			zap.String("action", string(action.Type)),
			zap.String("target", locatorOf(action.Target)),
			zap.Error(runErr))
		return false, nil
	}

	s.noteSuccess(action)
	return true, nil
}

func (s *Session) buildTask(action schemas.Action) (chromedp.Action, error) {
	switch action.Type {
	case schemas.ActionClick:
		xpath, err := requireLocator(action.Target)
		if err != nil {
			return nil, err
		}
		return chromedp.Click(xpath, chromedp.BySearch), nil

	case schemas.ActionInput:
		xpath, err := requireLocator(action.Target)
		if err != nil {
			return nil, err
		}
		value := action.Value
		if value == "" {
			value = "test_input"
		}
		return chromedp.Tasks{
			chromedp.Clear(xpath, chromedp.BySearch),
			chromedp.SendKeys(xpath, value, chromedp.BySearch),
		}, nil

	case schemas.ActionSelect:
		xpath, err := requireLocator(action.Target)
		if err != nil {
			return nil, err
		}
		if action.Value != "" {
			return chromedp.SetValue(xpath, action.Value, chromedp.BySearch), nil
		}
		// No value given: pick the first real option so the control changes
		// state at all.
		return chromedp.Evaluate(selectFirstOptionJS(xpath), nil), nil

	case schemas.ActionScrollUp:
		return chromedp.Evaluate(`window.scrollBy(0, -400)`, nil), nil
	case schemas.ActionScrollDown:
		return chromedp.Evaluate(`window.scrollBy(0, 400)`, nil), nil

	case schemas.ActionWait:
		return chromedp.Sleep(500 * time.Millisecond), nil

	case schemas.ActionNavigateBack:
		return chromedp.NavigateBack(), nil
	case schemas.ActionNavigateForward:
		return chromedp.NavigateForward(), nil
	case schemas.ActionRefresh:
		return chromedp.Reload(), nil

	case schemas.ActionHover:
		xpath, err := requireLocator(action.Target)
		if err != nil {
			return nil, err
		}
		return chromedp.Evaluate(dispatchHoverJS(xpath), nil), nil

	case schemas.ActionNavigate:
		url := action.Value
		if url == "" && action.Target != nil {
			url = action.Target.Attr("href")
		}
		if url == "" {
			return nil, fmt.Errorf("navigate action without a URL")
		}
		return chromedp.Tasks{
			chromedp.Navigate(absoluteURL(s.targetURL, url)),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true

	s.logger.Debug("Closing browser session.")
	s.browserCancel()
	s.allocCancel()
	return nil
}

// run executes chromedp actions bounded by both the caller's context and a
// per-call timeout on the session context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// settle gives client-side rendering a moment to finish after navigation.
func (s *Session) settle(ctx context.Context) {
	if s.cfg.PostLoadWait <= 0 {
		return
	}
	select {
	case <-time.After(s.cfg.PostLoadWait):
	case <-ctx.Done():
	case <-s.browserCtx.Done():
	}
}

func (s *Session) navigationTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return 30 * time.Second
}

func (s *Session) noteSuccess(action schemas.Action) {
	s.successfulActions++
	switch action.Type {
	case schemas.ActionNavigateBack, schemas.ActionNavigateForward,
		schemas.ActionRefresh, schemas.ActionNavigate, schemas.ActionClick:
		s.pageViews++
	}
}

func (s *Session) noteFailure(action schemas.Action) {
	if action.Type != schemas.ActionClick || action.Target == nil {
		return
	}
	label := strings.ToLower(action.Target.Text + " " + action.Target.Attr("id"))
	if strings.Contains(label, "login") || strings.Contains(label, "sign in") {
		s.failedLogins++
	}
}

// userContext derives session facts from what the page shows. The browser has
// no privileged view of the application's auth state, so logged-in and basket
// signals are DOM heuristics.
func (s *Session) userContext(elements []schemas.UIElement) schemas.UserContext {
	uc := schemas.UserContext{
		SessionDuration:   time.Since(s.episodeStart),
		PageViews:         s.pageViews,
		FailedLogins:      s.failedLogins,
		SuccessfulActions: s.successfulActions,
	}
	for i := range elements {
		el := &elements[i]
		label := strings.ToLower(el.Text + " " + el.Attr("id") + " " + el.Attr("class") + " " + el.Attr("href"))
		if strings.Contains(label, "logout") || strings.Contains(label, "sign out") {
			uc.LoggedIn = true
		}
		if strings.Contains(label, "admin") && el.Type == schemas.ElementLink {
			uc.IsAdmin = true
		}
		if (strings.Contains(label, "basket") || strings.Contains(label, "cart")) &&
			strings.ContainsAny(el.Text, "123456789") {
			uc.HasItemsInBasket = true
		}
	}
	return uc
}

func requireLocator(target *schemas.UIElement) (string, error) {
	if target == nil || target.XPath == "" {
		return "", fmt.Errorf("action requires a target element with a locator")
	}
	return target.XPath, nil
}

func locatorOf(target *schemas.UIElement) string {
	if target == nil {
		return ""
	}
	return target.XPath
}

func absoluteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func selectFirstOptionJS(xpath string) string {
	return fmt.Sprintf(`(function() {
		const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el || !el.options || el.options.length === 0) { throw new Error("select not found"); }
		for (let i = 0; i < el.options.length; i++) {
			if (el.options[i].value) { el.selectedIndex = i; break; }
		}
		el.dispatchEvent(new Event('change', { bubbles: true }));
	})()`, xpath)
}

func dispatchHoverJS(xpath string) string {
	return fmt.Sprintf(`(function() {
		const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) { throw new Error("element not found"); }
		el.dispatchEvent(new MouseEvent('mouseover', { bubbles: true }));
	})()`, xpath)
}
