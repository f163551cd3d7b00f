// Chatroom TUI client.
//
// Screens
// -------
//   stateLogin – centered login form (account / password / display name)
//   stateChat  – full-screen chat with a scrollable message viewport
//
// The broker has no "current room": a session may be in many rooms at once,
// and every chat event is tagged with its room.  The current room lives here,
// in the presentation layer, as the default target for plain-text input.
//
// Concurrency
// -----------
//   A single goroutine reads newline-delimited JSON from the TCP connection,
//   decodes each line, and forwards it to the events channel.  The Bubbletea
//   loop consumes one event at a time via waitForEvent (a tea.Cmd), queuing
//   the next read after each event is processed.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatroom/internal/protocol"
)

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(gray).
			Width(14)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(cyan).
				Width(14)

	hintStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true)

	errorStyle  = lipgloss.NewStyle().Foreground(red)
	okStyle     = lipgloss.NewStyle().Foreground(green)
	sysStyle    = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle     = lipgloss.NewStyle().Foreground(gray)
	roomStyle   = lipgloss.NewStyle().Foreground(cyan)
	myNameStyle = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle   = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

// ---------------------------------------------------------------------------
// Bubbletea message types
// ---------------------------------------------------------------------------

type serverEventMsg protocol.Event
type disconnectedMsg struct{}

// ---------------------------------------------------------------------------
// Application state
// ---------------------------------------------------------------------------

type appState int

const (
	stateLogin appState = iota
	stateChat
)

type model struct {
	conn   net.Conn
	events chan protocol.Event

	state appState
	me    string // display name from login_ok

	// Login form
	loginFocus  int
	loginFields [3]textinput.Model // [0]=account [1]=password [2]=display name
	statusMsg   string

	// Chat
	ready     bool
	viewport  viewport.Model
	chatInput textinput.Model
	chatLines []string

	rooms   []string        // last room_list from the server
	joined  map[string]bool // rooms this session has joined
	current string          // default target room for plain text

	width, height int
}

func newModel(conn net.Conn, events chan protocol.Event) model {
	af := textinput.New()
	af.Placeholder = "account"
	af.Focus()
	af.CharLimit = 32
	af.Width = 32

	pf := textinput.New()
	pf.Placeholder = "password"
	pf.EchoMode = textinput.EchoPassword
	pf.EchoCharacter = '•'
	pf.CharLimit = 64
	pf.Width = 32

	nf := textinput.New()
	nf.Placeholder = "display name (optional)"
	nf.CharLimit = 32
	nf.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message, or /create /join /leave /switch /rooms…"
	ci.CharLimit = 500

	return model{
		conn:        conn,
		events:      events,
		state:       stateLogin,
		loginFields: [3]textinput.Model{af, pf, nf},
		chatInput:   ci,
		joined:      make(map[string]bool),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case serverEventMsg:
		m = m.handleServerEvent(protocol.Event(msg))
		return m, waitForEvent(m.events)

	case disconnectedMsg:
		m.statusMsg = "disconnected from server"
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

// vpHeight returns the number of lines available for the chat viewport.
func (m model) vpHeight() int {
	// header (1) + footer border (1) + footer input (1) = 3 lines reserved
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		if msg.Type == tea.KeyTab {
			m.loginFocus = (m.loginFocus + 1) % 3
		} else {
			m.loginFocus = (m.loginFocus + 2) % 3
		}
		for i := range m.loginFields {
			if i == m.loginFocus {
				m.loginFields[i].Focus()
			} else {
				m.loginFields[i].Blur()
			}
		}
		return m, textinput.Blink

	case tea.KeyEnter:
		account := strings.TrimSpace(m.loginFields[0].Value())
		password := m.loginFields[1].Value()
		name := strings.TrimSpace(m.loginFields[2].Value())
		if account == "" || password == "" {
			m.statusMsg = "account and password are required"
			return m, nil
		}
		sendReq(m.conn, protocol.Login{Account: account, Password: password, Name: name})
		m.statusMsg = "Logging in…"
		return m, nil
	}

	var cmd tea.Cmd
	m.loginFields[m.loginFocus], cmd = m.loginFields[m.loginFocus].Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		return m, tea.Quit

	case tea.KeyEnter:
		input := strings.TrimSpace(m.chatInput.Value())
		if input != "" {
			m = m.submit(input)
			m.chatInput.Reset()
		}
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

// submit interprets one line of chat input: a slash command, or plain text
// sent to the current room.
func (m model) submit(input string) model {
	if !strings.HasPrefix(input, "/") {
		if m.current == "" {
			m.appendChat(errorStyle.Render("⚠ no current room — /join one first"))
			return m
		}
		sendReq(m.conn, protocol.Chat{Room: m.current, Message: input})
		return m
	}

	cmd, arg, _ := strings.Cut(input[1:], " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "create":
		sendReq(m.conn, protocol.CreateRoom{Room: arg})
	case "join":
		sendReq(m.conn, protocol.JoinRoom{Room: arg})
	case "leave":
		room := arg
		if room == "" {
			room = m.current
		}
		if room == "" {
			m.appendChat(errorStyle.Render("⚠ /leave <room>"))
			return m
		}
		sendReq(m.conn, protocol.LeaveRoom{Room: room})
		delete(m.joined, room)
		if m.current == room {
			m.current = m.anyJoined()
		}
		m.appendChat(sysStyle.Render("left " + room))
	case "switch":
		if !m.joined[arg] {
			m.appendChat(errorStyle.Render("⚠ not in room " + arg))
			return m
		}
		m.current = arg
		m.appendChat(sysStyle.Render("now talking in " + arg))
	case "rooms":
		m.appendChat(sysStyle.Render("rooms: " + strings.Join(m.rooms, ", ")))
	default:
		m.appendChat(errorStyle.Render("⚠ unknown command /" + cmd))
	}
	return m
}

func (m model) anyJoined() string {
	for room := range m.joined {
		return room
	}
	return ""
}

// ---------------------------------------------------------------------------
// Server event handler
// ---------------------------------------------------------------------------

func (m model) handleServerEvent(ev protocol.Event) model {
	switch ev.Type {

	case protocol.TypeLoginOK:
		m.me = ev.Name
		m.state = stateChat
		m.chatInput.Focus()
		m.appendChat(okStyle.Render("✓ logged in as " + m.me))

	case protocol.TypeLoginFail:
		m.statusMsg = ev.Message

	case protocol.TypeRoomList:
		m.rooms = ev.Rooms
		m.appendChat(sysStyle.Render("rooms: " + strings.Join(ev.Rooms, ", ")))

	case protocol.TypeCreateRoomOK:
		m.appendChat(okStyle.Render("✓ created room " + ev.Room))

	case protocol.TypeCreateRoomFail:
		m.appendChat(errorStyle.Render("⚠ " + ev.Message))

	case protocol.TypeJoinRoomOK:
		m.joined[ev.Room] = true
		if m.current == "" {
			m.current = ev.Room
		}
		m.appendChat(okStyle.Render("✓ " + ev.Message + ": " + ev.Room))

	case protocol.TypeJoinRoomFail:
		m.appendChat(errorStyle.Render("⚠ " + ev.Message))

	case protocol.TypeChat:
		ts := tsStyle.Render("[" + ev.Time + "]")
		tag := roomStyle.Render("#" + ev.Room)
		var name string
		if ev.From == m.me {
			name = myNameStyle.Render(ev.From)
		} else {
			name = peerStyle.Render(ev.From)
		}
		m.appendChat(ts + " " + tag + " " + name + ": " + ev.Message)

	case protocol.TypeSystem:
		line := "⚡ " + ev.Message
		if ev.Room != "" {
			line = "⚡ " + roomStyle.Render("#"+ev.Room) + " " + ev.Message
		}
		m.appendChat(sysStyle.Render(line))
	}
	return m
}

// appendChat adds a rendered line and scrolls the viewport to the bottom.
func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}

	title := titleStyle.Render("  Chatroom  ")

	renderField := func(label string, f textinput.Model, focused bool) string {
		var lbl string
		if focused {
			lbl = focusedLabelStyle.Render(label)
		} else {
			lbl = labelStyle.Render(label)
		}
		return lbl + "  " + f.View()
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		renderField("Account", m.loginFields[0], m.loginFocus == 0),
		renderField("Password", m.loginFields[1], m.loginFocus == 1),
		renderField("Display name", m.loginFields[2], m.loginFocus == 2),
		"",
		hintStyle.Render("Tab: switch field   Enter: log in   Ctrl+C: quit"),
		"",
		m.renderStatus(),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	current := m.current
	if current == "" {
		current = "—"
	}
	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" Chatroom  ·  %s  ·  in #%s  ·  %d room(s) exist  ·  Ctrl+C: Quit",
			m.me, current, len(m.rooms)))

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

func (m model) renderStatus() string {
	if m.statusMsg == "" {
		return ""
	}
	if strings.Contains(m.statusMsg, "Logging in") {
		return hintStyle.Render(m.statusMsg)
	}
	return errorStyle.Render(m.statusMsg)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// waitForEvent returns a tea.Cmd that blocks until the next server event.
// When the channel closes (server disconnected) it returns disconnectedMsg.
func waitForEvent(ch <-chan protocol.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverEventMsg(ev)
	}
}

// sendReq writes one request as a newline-terminated JSON line.
func sendReq(conn net.Conn, req protocol.Request) {
	conn.Write(protocol.EncodeRequest(req))
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "localhost:12345", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// events bridges the TCP reader goroutine and the Bubbletea loop.
	events := make(chan protocol.Event, 64)

	go func() {
		defer close(events)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var ev protocol.Event
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			events <- ev
		}
	}()

	p := tea.NewProgram(
		newModel(conn, events),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
