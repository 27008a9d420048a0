// internal/tui/app.go
//
// This is the main TUI for the mortgage portal. It follows The Elm
// Architecture that bubbletea is built on:
//
// 1. Model: the session, the record cache and the workflow state machines
// 2. Update: applies key presses and remote call results to that state
// 3. View: renders the current surface to a string
//
// Every remote call runs inside a tea.Cmd and its result comes back through
// Update as a message, so workflow state is only ever touched here.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/mortgage-portal/internal/client"
	"github.com/kingrea/mortgage-portal/internal/config"
	"github.com/kingrea/mortgage-portal/internal/logbook"
	"github.com/kingrea/mortgage-portal/internal/logging"
	"github.com/kingrea/mortgage-portal/internal/portal"
	"github.com/kingrea/mortgage-portal/internal/records"
	"github.com/kingrea/mortgage-portal/internal/session"
)

const logPanelLines = 6

// Backend is every remote call the portal makes.
type Backend interface {
	session.Authenticator
	records.Fetcher
	SubmitEligibility(ctx context.Context, email string, doc portal.Document) error
	GetExplanation(ctx context.Context, borrowerID portal.ID) (*portal.ExplanationReport, error)
	SubmitDecision(ctx context.Context, override portal.DecisionOverride) error
	GenerateLetter(ctx context.Context, borrowerID portal.ID) (portal.Letter, error)
	UpdateLetter(ctx context.Context, letter portal.Letter) error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithBackend replaces the HTTP client built from the config.
func WithBackend(b Backend) AppOption {
	return func(a *App) {
		if b != nil {
			a.backend = b
		}
	}
}

// WithLogbook replaces the journey log opened under the logs directory.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// dashboard is the lifetime of one authenticated surface. Its context is
// cancelled when the user logs out or switches role.
type dashboard struct {
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64
	identity portal.Identity
}

// App is the main application model.
type App struct {
	config  *config.Config
	backend Backend
	logbook *logbook.Logbook
	tracer  *logging.Logger

	session *session.Store
	records *records.Cache

	surface     Surface
	dash        *dashboard
	login       *loginScreen
	borrower    *borrowerScreen
	underwriter *underwriterScreen

	statusMsg string
	width     int
	height    int
}

// NewApp wires the portal from cfg.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	app := &App{config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
		if err == nil {
			app.logbook = lb
		}
	}
	if app.backend == nil {
		tracer, err := logging.New(cfg.LogsDir())
		if err != nil {
			return nil, err
		}
		app.tracer = tracer
		app.backend = client.New(client.EndpointsFromConfig(cfg), cfg.Timeout(), client.WithLogger(tracer))
	}
	app.session = session.New(app.backend, app.logbook)
	app.records = records.New(app.backend)
	app.login = newLoginScreen()
	app.surface = SurfaceLogin
	app.logInfo("Session opened · borrower=%s underwriter=%s letters=%s",
		cfg.File.Services.BorrowerHelper, cfg.File.Services.UnderwriterHelper, cfg.File.Services.Letters)
	return app, nil
}

// Close releases the request trace file.
func (a *App) Close() error {
	if a.dash != nil {
		a.dash.cancel()
	}
	return a.tracer.Close()
}

func (a *App) logInfo(format string, args ...any)  { a.logbook.Info(format, args...) }
func (a *App) logWarn(format string, args ...any)  { a.logbook.Warn(format, args...) }
func (a *App) logError(format string, args ...any) { a.logbook.Error(format, args...) }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.login.focus()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.login.resize(msg.Width)
		if a.underwriter != nil {
			a.underwriter.resize(msg.Width, msg.Height)
		}
		return a, nil

	case loginResultMsg:
		return a.handleLoginResult(msg)

	case borrowersLoadedMsg, selfLoadedMsg, eligibilityResultMsg,
		explanationResultMsg, overrideResultMsg, letterGeneratedMsg, letterUpdatedMsg:
		if !a.current(msg) {
			return a, nil
		}
		return a, a.routeResult(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.handleKey(msg)
	}
	return a, nil
}

// current drops results from a dashboard that has since been left.
func (a *App) current(msg tea.Msg) bool {
	gm, ok := msg.(interface{ generation() uint64 })
	if !ok || a.dash == nil {
		return false
	}
	return gm.generation() == a.dash.gen && gm.generation() == a.session.Generation()
}

func (a *App) routeResult(msg tea.Msg) tea.Cmd {
	switch a.surface {
	case SurfaceBorrower:
		if a.borrower != nil {
			return a.borrower.update(a, msg)
		}
	case SurfaceUnderwriter:
		if a.underwriter != nil {
			return a.underwriter.update(a, msg)
		}
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch a.surface {
	case SurfaceLogin:
		return a.login.handleKey(a, msg)
	case SurfaceBorrower:
		return a.borrower.handleKey(a, msg)
	case SurfaceUnderwriter:
		return a.underwriter.handleKey(a, msg)
	case SurfaceInvalidRole:
		switch msg.String() {
		case "s", "esc":
			return a.switchRole()
		case "o":
			return a.logout()
		}
	}
	return nil
}

func (a *App) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	a.login.submitting = false
	if msg.err != nil {
		a.login.err = msg.err.Error()
		return a, nil
	}
	a.login.reset()
	return a, a.mount()
}

// mount opens the dashboard for the logged-in identity.
func (a *App) mount() tea.Cmd {
	identity := a.session.Identity()
	a.surface = SurfaceFor(identity)
	if identity == nil {
		return a.login.focus()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.dash = &dashboard{ctx: ctx, cancel: cancel, gen: a.session.Generation(), identity: *identity}
	a.statusMsg = ""
	switch a.surface {
	case SurfaceBorrower:
		a.borrower = newBorrowerScreen(a.config.ClearFileOnFailure())
		return a.refreshSelf()
	case SurfaceUnderwriter:
		a.underwriter = newUnderwriterScreen(a.width, a.height)
		return a.refreshBorrowers()
	default:
		a.logWarn("Login routed to invalid role %q", identity.Role)
	}
	return nil
}

// switchRole drops the dashboard and returns to login without a backend call.
func (a *App) switchRole() tea.Cmd {
	a.unmount()
	a.session.SwitchRole()
	a.login.previous = a.session.PreviousRole()
	return a.login.focus()
}

func (a *App) logout() tea.Cmd {
	a.unmount()
	a.session.Logout()
	a.statusMsg = "Logged out"
	return a.login.focus()
}

// unmount cancels the dashboard's calls and drops its state.
func (a *App) unmount() {
	if a.dash != nil {
		a.dash.cancel()
		a.dash = nil
	}
	a.records.Reset()
	a.borrower = nil
	a.underwriter = nil
	a.surface = SurfaceLogin
	a.statusMsg = ""
	a.login.reset()
}

// View renders the current surface.
func (a *App) View() string {
	var content string
	switch a.surface {
	case SurfaceLogin:
		content = a.login.view()
	case SurfaceBorrower:
		content = a.borrower.view(a)
	case SurfaceUnderwriter:
		content = a.underwriter.view(a)
	case SurfaceInvalidRole:
		content = a.renderInvalidRole()
	}
	return a.renderFrame(content)
}

func (a *App) renderInvalidRole() string {
	role := ""
	if a.dash != nil {
		role = string(a.dash.identity.Role)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render(fmt.Sprintf("Invalid role: %s", role)),
		hintStyle.MarginTop(1).Render("s → back to login    o → log out    ctrl+c → quit"),
	)
}

func (a *App) renderFrame(content string) string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	title := "MORTGAGE PORTAL"
	if a.dash != nil {
		title = fmt.Sprintf("MORTGAGE PORTAL · %s (%s)", a.dash.identity.FullName, a.dash.identity.Role)
	}
	sections := []string{
		headerStyle.Render(title),
		panelStyle.Width(max(20, width-4)).Render(content),
	}
	if logPanel := a.renderLogPanel(width); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, mutedStyle.MarginTop(1).Render(a.statusMsg))
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel(width int) string {
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	head := titleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := hintStyle.Render(strings.Join(lines, "\n"))
	return panelStyle.Width(max(20, width-4)).Render(fmt.Sprintf("%s\n%s", head, body))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
