// Package tui is the terminal front end for inventag: a login form, an item
// form, and a label preview modal backed by an artifact session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/session"
	"github.com/louisbranch/inventag/internal/client/inventory"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
)

// API is the subset of the inventory client the TUI drives.
type API interface {
	Login(ctx context.Context, username, password string) (inventory.LoginResult, error)
	CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error)
	SetToken(token string)
}

// Config wires a Model to its collaborators.
type Config struct {
	API     API
	Session *session.Session

	// Username prefills the login form.
	Username string
	// Authenticated skips the login form when a stored token is in use.
	Authenticated bool
	// OnLogin persists a freshly issued token. Optional.
	OnLogin func(username string, result inventory.LoginResult) error
}

type screen int

const (
	screenLogin screen = iota
	screenItem
)

const (
	loginUsername = iota
	loginPassword
)

const (
	itemID = iota
	itemName
	itemPrice
	itemDescription
)

type sessionEventMsg struct{ event session.Event }

type loginResultMsg struct {
	username string
	result   inventory.LoginResult
	err      error
}

type savedMsg struct {
	item inventory.Item
	err  error
}

type composedMsg struct{ err error }

type exportedMsg struct {
	receipt session.Receipt
	err     error
}

// Model is the bubbletea model for the inventag TUI.
type Model struct {
	api     API
	session *session.Session
	onLogin func(string, inventory.LoginResult) error
	keys    KeyMap
	styles  styles

	screen     screen
	loginForm  []field
	itemForm   []field
	focus      int
	state      session.State
	modal      bool
	preview    viewport.Model
	status     string
	statusErr  bool
	width      int
	height     int
	authedUser string
}

// NewModel builds a Model. The session's events are consumed by the model
// once the program starts.
func NewModel(cfg Config) Model {
	model := Model{
		api:     cfg.API,
		session: cfg.Session,
		onLogin: cfg.OnLogin,
		keys:    DefaultKeyMap,
		styles:  newStyles(DefaultTheme),
		loginForm: []field{
			newField("Username", false),
			newField("Password", true),
		},
		itemForm: []field{
			newField("ID", false),
			newField("Name", false),
			newField("Price", false),
			newField("Description", false),
		},
		preview: viewport.New(60, 12),
	}
	model.loginForm[loginUsername].SetValue(cfg.Username)
	if cfg.Authenticated {
		model.screen = screenItem
		model.authedUser = cfg.Username
	} else if cfg.Username != "" {
		model.focus = loginPassword
	}
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	if model.session == nil {
		return nil
	}
	return listenForSessionEvent(model.session.Events())
}

// listenForSessionEvent returns a tea.Cmd that blocks until the session
// reports a state, then delivers it as a sessionEventMsg.
func listenForSessionEvent(channel <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return sessionEventMsg{event: event}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.preview.Width = min(max(message.Width-8, 20), 80)
		model.preview.Height = max(message.Height-10, 5)
		return model, nil

	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		if model.modal {
			return model.handleModalKeys(message)
		}
		if model.screen == screenLogin {
			return model.handleLoginKeys(message)
		}
		return model.handleItemKeys(message)

	case sessionEventMsg:
		model.state = message.event.State
		if message.event.Err != nil && !errors.Is(message.event.Err, session.ErrSuperseded) {
			model.setError(message.event.Err)
		}
		if message.event.State == session.Composed {
			model.refreshPreview()
		}
		return model, listenForSessionEvent(model.session.Events())

	case loginResultMsg:
		if message.err != nil {
			model.setError(fmt.Errorf("login: %w", message.err))
			model.loginForm[loginPassword].SetValue("")
			return model, nil
		}
		model.api.SetToken(message.result.Token)
		if model.onLogin != nil {
			if err := model.onLogin(message.username, message.result); err != nil {
				model.setError(fmt.Errorf("save session: %w", err))
			}
		}
		model.loginForm[loginPassword].SetValue("")
		model.authedUser = message.username
		model.screen = screenItem
		model.focus = itemID
		model.setStatus("Logged in as " + message.username)
		return model, nil

	case savedMsg:
		if message.err != nil {
			model.setError(fmt.Errorf("save item: %w", message.err))
			return model, nil
		}
		model.setStatus(fmt.Sprintf("Saved item %s", message.item.ID))
		return model, nil

	case composedMsg:
		switch {
		case message.err == nil:
			model.refreshPreview()
		case errors.Is(message.err, session.ErrSuperseded), errors.Is(message.err, session.ErrDismissed):
		default:
			model.setError(message.err)
		}
		return model, nil

	case exportedMsg:
		if message.err != nil {
			model.setError(message.err)
			return model, nil
		}
		model.modal = false
		model.setStatus(fmt.Sprintf("Exported %s to %s (%d bytes)", message.receipt.Filename, message.receipt.Location, message.receipt.Size))
		return model, nil
	}
	return model, nil
}

func (model Model) handleLoginKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		if model.focus == loginUsername {
			model.focus = loginPassword
			return model, nil
		}
		username := strings.TrimSpace(model.loginForm[loginUsername].Value())
		password := model.loginForm[loginPassword].Value()
		if username == "" || password == "" {
			model.setError(errors.New("username and password are required"))
			return model, nil
		}
		model.setStatus("Logging in...")
		return model, model.loginCmd(username, password)

	case key.Matches(message, model.keys.NextField), key.Matches(message, model.keys.PrevField):
		model.focus = (model.focus + 1) % len(model.loginForm)
		return model, nil
	}
	model.loginForm[model.focus].Update(message)
	return model, nil
}

func (model Model) handleItemKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.NextField):
		model.moveFocus(1)
		return model, nil

	case key.Matches(message, model.keys.PrevField):
		model.moveFocus(-1)
		return model, nil

	case key.Matches(message, model.keys.Save):
		item := model.formItem()
		if item.ID == "" {
			model.setError(errors.New("item id is required"))
			return model, nil
		}
		model.setStatus("Saving...")
		return model, model.saveCmd(item)

	case key.Matches(message, model.keys.Produce):
		model.syncSession()
		if !model.session.Item().HasID() {
			model.setError(errors.New("enter an item id before producing a label"))
			return model, nil
		}
		model.modal = true
		model.preview.SetContent("")
		model.preview.GotoTop()
		model.setStatus("")
		return model, model.produceCmd()
	}

	if model.itemForm[model.focus].Update(message) {
		model.syncSession()
	}
	return model, nil
}

func (model Model) handleModalKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Download):
		if !model.session.HasPending() {
			return model, nil
		}
		return model, model.exportCmd()

	case key.Matches(message, model.keys.Close):
		model.session.Dismiss()
		model.modal = false
		return model, nil

	case key.Matches(message, model.keys.ScrollUp):
		model.preview.LineUp(1)
	case key.Matches(message, model.keys.ScrollDn):
		model.preview.LineDown(1)
	}
	return model, nil
}

// moveFocus shifts focus within the item form. Leaving the id field
// re-encodes the symbol.
func (model *Model) moveFocus(delta int) {
	leaving := model.focus
	model.focus = (model.focus + delta + len(model.itemForm)) % len(model.itemForm)
	if leaving == itemID && model.focus != itemID {
		model.syncSession()
		if err := model.session.BlurIdentifier(); err != nil {
			model.setError(err)
		}
	}
}

func (model *Model) formItem() inventory.Item {
	return inventory.Item{
		ID:          strings.TrimSpace(model.itemForm[itemID].Value()),
		Name:        model.itemForm[itemName].Value(),
		Price:       model.itemForm[itemPrice].Value(),
		Description: model.itemForm[itemDescription].Value(),
	}
}

func (model *Model) syncSession() {
	model.session.SetItem(model.formItem().Artifact())
}

func (model *Model) refreshPreview() {
	doc := model.session.Pending()
	if doc == nil {
		return
	}
	model.preview.SetContent(doc.Preview())
	model.preview.GotoTop()
}

func (model *Model) setStatus(text string) {
	model.status = text
	model.statusErr = false
}

func (model *Model) setError(err error) {
	model.status = err.Error()
	model.statusErr = true
}

func (model Model) loginCmd(username, password string) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Client)
		defer cancel()
		result, err := api.Login(ctx, username, password)
		return loginResultMsg{username: username, result: result, err: err}
	}
}

func (model Model) saveCmd(item inventory.Item) tea.Cmd {
	api := model.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Client)
		defer cancel()
		saved, err := api.CreateItem(ctx, item)
		return savedMsg{item: saved, err: err}
	}
}

// produceCmd starts a composition and waits for it to settle.
func (model Model) produceCmd() tea.Cmd {
	comp := model.session.ProduceArtifact(context.Background())
	return func() tea.Msg {
		_, err := comp.Wait(context.Background())
		return composedMsg{err: err}
	}
}

func (model Model) exportCmd() tea.Cmd {
	sess := model.session
	return func() tea.Msg {
		receipt, err := sess.ExportArtifact(context.Background())
		return exportedMsg{receipt: receipt, err: err}
	}
}

// View implements tea.Model.
func (model Model) View() string {
	var b strings.Builder
	b.WriteString(model.styles.banner.Render("InvenTag"))
	b.WriteString("\n\n")

	if model.screen == screenLogin {
		b.WriteString(model.styles.heading.Render("Log in"))
		b.WriteString("\n\n")
		b.WriteString(model.renderForm(model.loginForm))
	} else {
		heading := "Item"
		if model.authedUser != "" {
			heading += model.styles.faint.Render("  (" + model.authedUser + ")")
		}
		b.WriteString(model.styles.heading.Render(heading))
		b.WriteString("\n\n")
		b.WriteString(model.renderForm(model.itemForm))
		b.WriteString("\n")
		b.WriteString(model.renderSymbol())
	}

	b.WriteString("\n\n")
	b.WriteString(model.renderStatus())
	b.WriteString("\n")
	b.WriteString(model.renderHelp())

	if model.modal {
		return model.overlayModal(b.String())
	}
	return b.String()
}

func (model Model) renderForm(fields []field) string {
	var b strings.Builder
	for i := range fields {
		focused := i == model.focus
		labelStyle := model.styles.label
		if focused {
			labelStyle = model.styles.focused
		}
		b.WriteString(labelStyle.Render(fields[i].label))
		b.WriteString(model.styles.value.Render(fields[i].render(focused)))
		b.WriteString("\n")
	}
	return b.String()
}

func (model Model) renderSymbol() string {
	snap := model.session.Symbol()
	if snap.Empty() {
		return model.styles.faint.Render("No symbol yet. Enter an id and leave the field to encode it.")
	}
	return model.styles.label.Render("Symbol") + model.styles.faint.Render(snap.Payload)
}

func (model Model) renderStatus() string {
	text := model.status
	if text == "" && model.screen == screenItem {
		text = "State: " + model.state.String()
	}
	if model.statusErr {
		return model.styles.errorText.Render(text)
	}
	return model.styles.faint.Render(text)
}

func (model Model) renderHelp() string {
	var bindings []key.Binding
	switch {
	case model.modal:
		if model.session.HasPending() {
			bindings = append(bindings, model.keys.Download)
		}
		bindings = append(bindings, model.keys.Close)
	case model.screen == screenLogin:
		bindings = []key.Binding{model.keys.NextField, model.keys.Submit, model.keys.Quit}
	default:
		bindings = []key.Binding{model.keys.NextField, model.keys.Save, model.keys.Produce, model.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return model.styles.faint.Render(strings.Join(parts, " · "))
}

func (model Model) renderModal() string {
	var body string
	switch {
	case model.session.HasPending():
		body = model.preview.View()
	case model.state == session.AwaitingAsset:
		body = model.styles.faint.Render("Loading brand mark...")
	default:
		body = model.styles.faint.Render("No label composed.")
	}
	title := model.styles.heading.Render("Label preview")
	if doc := model.session.Pending(); doc != nil {
		title += model.styles.faint.Render("  " + doc.Filename())
	}
	return model.styles.modal.Render(title + "\n\n" + body + "\n\n" + model.renderHelp())
}

func (model Model) overlayModal(background string) string {
	if model.width == 0 || model.height == 0 {
		return background + "\n\n" + model.renderModal()
	}
	return lipgloss.Place(model.width, model.height, lipgloss.Center, lipgloss.Center, model.renderModal())
}

// ArtifactItem returns the item currently entered in the form.
func (model Model) ArtifactItem() artifact.Item {
	return model.formItem().Artifact()
}
