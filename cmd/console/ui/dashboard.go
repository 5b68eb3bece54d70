package ui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardModel renders queue stats and live connections, refreshed on a
// fixed interval.
type DashboardModel struct {
	Client   *Client
	Table    table.Model
	Interval time.Duration

	stats *QueueStats
	conns map[string]ConnInfo
	Err   error
}

type statsMsg struct {
	stats *QueueStats
	conns []ConnInfo
	err   error
}

type tickMsg struct{}

func NewDashboardModel(client *Client, interval time.Duration, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Device ID", Width: 28},
		{Title: "Online", Width: 8},
		{Title: "Queued", Width: 8},
		{Title: "Pending", Width: 8},
		{Title: "Sent", Width: 8},
		{Title: "Acked", Width: 8},
		{Title: "Failed", Width: 8},
		{Title: "Last Heartbeat", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{Client: client, Table: t, Interval: interval}
}

func (m DashboardModel) fetch() tea.Msg {
	stats, err := m.Client.FetchQueueStats()
	if err != nil {
		return statsMsg{err: err}
	}
	conns, err := m.Client.FetchConnections()
	if err != nil {
		return statsMsg{err: err}
	}
	return statsMsg{stats: stats, conns: conns}
}

func (m DashboardModel) tick() tea.Cmd {
	return tea.Tick(m.Interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetch, m.tick())
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.fetch
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(m.fetch, m.tick())

	case statsMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Err = nil
		m.stats = msg.stats
		m.conns = make(map[string]ConnInfo, len(msg.conns))
		for _, c := range msg.conns {
			m.conns[c.DeviceID] = c
		}
		m.Table.SetRows(m.buildRows())
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) buildRows() []table.Row {
	if m.stats == nil {
		return nil
	}
	ids := make([]string, 0, len(m.stats.PerDevice))
	for id := range m.stats.PerDevice {
		ids = append(ids, id)
	}
	// Connected devices with no commands yet still get a row.
	for id := range m.conns {
		if _, ok := m.stats.PerDevice[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		st := m.stats.PerDevice[id]
		online := "no"
		heartbeat := "-"
		if conn, ok := m.conns[id]; ok {
			online = "yes"
			heartbeat = conn.LastHeartbeat.Format("15:04:05")
			if !conn.Alive {
				online = "stale"
			}
		}
		rows = append(rows, table.Row{
			id,
			online,
			fmt.Sprintf("%d", st.Queued),
			fmt.Sprintf("%d", st.Pending),
			fmt.Sprintf("%d", st.Sent),
			fmt.Sprintf("%d", st.Acked),
			fmt.Sprintf("%d", st.Failed),
			heartbeat,
		})
	}
	return rows
}

func (m DashboardModel) View() string {
	title := titleStyle.Render("Robot Gateway Console")
	summary := ""
	if m.stats != nil {
		summary = summaryStyle.Render(fmt.Sprintf(
			"connections: %d   queued: %d   pending: %d   sent: %d",
			len(m.conns), m.stats.TotalQueued, m.stats.TotalPending, m.stats.TotalSent,
		))
	}
	body := m.Table.View()
	footer := summaryStyle.Render("r: refresh   q: quit")
	if m.Err != nil {
		footer = errorMessageStyle(m.Err.Error())
	}
	return docStyle.Render(title + "\n\n" + summary + "\n\n" + body + "\n\n" + footer)
}
