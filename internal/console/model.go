// Package console is the operator's terminal front-end: a live table of repair
// tickets backed by the sync client, with add, edit and delete dialogs.
package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/syncer"
)

// Backend is the part of syncer.Syncer the console uses.
type Backend interface {
	Refresh(ctx context.Context) (syncer.Snapshot, error)
	Snapshot() syncer.Snapshot
	Create(ctx context.Context, f model.RepairFields) (uint64, error)
	Update(ctx context.Context, id uint64, p model.RepairPatch) (*model.Repair, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// SnapshotMsg delivers a fresh table state from the background poller.
type SnapshotMsg struct{ Snapshot syncer.Snapshot }

// ErrorMsg reports a failed background refresh.
type ErrorMsg struct {
	Op  string
	Err error
}

// opDoneMsg is the result of a user-initiated operation.
type opDoneMsg struct {
	notice string
	err    error
	snap   syncer.Snapshot
}

type mode int

const (
	modeTable mode = iota
	modeForm
	modeConfirm
	modeNotice
	modeDetail
)

type confirmKind int

const (
	confirmDelete confirmKind = iota
	confirmDeleteAll
)

type Model struct {
	backend Backend
	keys    KeyMap
	theme   theme

	table table.Model
	snap  syncer.Snapshot

	mode    mode
	form    repairForm
	confirm struct {
		kind confirmKind
		id   uint64
	}
	notice  string
	isError bool
	detail  string
	status  string
	busy    bool

	width, height int
}

var columns = []table.Column{
	{Title: "ID", Width: 5},
	{Title: "ФИО клиента", Width: 20},
	{Title: "Тип устройства", Width: 14},
	{Title: "Изготовитель", Width: 12},
	{Title: "Модель", Width: 12},
	{Title: "Серийный номер", Width: 14},
	{Title: "Комплектация", Width: 14},
	{Title: "Адрес клиента", Width: 18},
	{Title: "Статус", Width: 14},
	{Title: "Время статуса", Width: 19},
	{Title: "Неисправность", Width: 20},
	{Title: "Примечания", Width: 16},
}

func New(b Backend) Model {
	th := defaultTheme()
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(th.table)
	m := Model{
		backend: b,
		keys:    DefaultKeyMap,
		theme:   th,
		table:   t,
	}
	m.setSnapshot(b.Snapshot())
	return m
}

func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m *Model) setSnapshot(s syncer.Snapshot) {
	m.snap = s
	rows := make([]table.Row, 0, len(s.Repairs))
	for _, r := range s.Repairs {
		rows = append(rows, repairRow(r))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	if !s.FetchedAt.IsZero() {
		m.status = fmt.Sprintf("Записей: %d • обновлено %s", len(s.Repairs), s.FetchedAt.Format("15:04:05"))
	}
}

func repairRow(r model.Repair) table.Row {
	label := string(r.Status)
	if st, err := model.ParseStatus(label); err == nil {
		label = st.Label()
	}
	return table.Row{
		strconv.FormatUint(r.ID, 10),
		r.ClientName,
		r.DeviceType,
		r.Manufacturer,
		r.Model,
		r.SerialNumber,
		r.Accessories,
		r.ClientAddress,
		label,
		r.StatusTimestamp,
		oneLine(r.IssueDescription),
		oneLine(r.Notes),
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (m Model) selected() (model.Repair, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.snap.Repairs) {
		return model.Repair{}, false
	}
	return m.snap.Repairs[c], true
}

func (m Model) refresh() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		snap, err := b.Refresh(context.Background())
		if err != nil {
			return ErrorMsg{Op: "refresh", Err: err}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// run executes a write off the UI goroutine and returns the post-write snapshot.
func (m Model) run(fn func(ctx context.Context, b Backend) (string, error)) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		notice, err := fn(context.Background(), b)
		return opDoneMsg{notice: notice, err: err, snap: b.Snapshot()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		return m, nil

	case ErrorMsg:
		m.showNotice(fmt.Sprintf("Сервис недоступен (%s): %v", msg.Op, msg.Err), true)
		return m, nil

	case opDoneMsg:
		m.busy = false
		m.setSnapshot(msg.snap)
		if msg.err != nil {
			m.showNotice("Ошибка: "+msg.err.Error(), true)
			return m, nil
		}
		m.status = msg.notice
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeNotice, modeDetail:
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			m.mode = modeTable
			m.notice, m.detail = "", ""
			return m, nil
		}
		return m.updateTable(msg)
	}
	return m, nil
}

// showNotice opens a blocking message; a newer one replaces the text of an open one.
func (m *Model) showNotice(text string, isError bool) {
	if m.mode == modeForm || m.mode == modeConfirm {
		m.status = text
		return
	}
	m.mode = modeNotice
	m.notice = text
	m.isError = isError
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Add):
		m.form = newRepairForm(nil, m.snap.Suggestions)
		m.mode = modeForm
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.form = newRepairForm(&r, m.snap.Suggestions)
		m.mode = modeForm
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirm.kind, m.confirm.id = confirmDelete, r.ID
		m.mode = modeConfirm
		return m, nil
	case key.Matches(msg, m.keys.DeleteAll):
		if len(m.snap.Repairs) == 0 {
			return m, nil
		}
		m.confirm.kind, m.confirm.id = confirmDeleteAll, 0
		m.mode = modeConfirm
		return m, nil
	case key.Matches(msg, m.keys.View):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.detail = fmt.Sprintf("Неисправность:\n%s\n\nПримечания:\n%s", orDash(r.IssueDescription), orDash(r.Notes))
		m.mode = modeDetail
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	submit, cancel, cmd := m.form.update(msg, m.keys)
	switch {
	case cancel:
		m.mode = modeTable
		return m, nil
	case submit:
		id := m.form.editID
		m.mode = modeTable
		if id == 0 {
			values := m.form.values()
			m.busy = true
			return m, m.run(func(ctx context.Context, b Backend) (string, error) {
				newID, err := b.Create(ctx, values)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Ремонт №%d добавлен", newID), nil
			})
		}
		patch, changed := m.form.patch()
		if !changed {
			m.status = fmt.Sprintf("Ремонт №%d: без изменений", id)
			return m, nil
		}
		m.busy = true
		return m, m.run(func(ctx context.Context, b Backend) (string, error) {
			if _, err := b.Update(ctx, id, patch); err != nil {
				return "", err
			}
			return fmt.Sprintf("Ремонт №%d сохранён", id), nil
		})
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeTable
		m.busy = true
		if m.confirm.kind == confirmDeleteAll {
			return m, m.run(func(ctx context.Context, b Backend) (string, error) {
				n, err := b.DeleteAll(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Удалено записей: %d", n), nil
			})
		}
		id := m.confirm.id
		return m, m.run(func(ctx context.Context, b Backend) (string, error) {
			if err := b.Delete(ctx, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("Ремонт №%d удалён", id), nil
		})
	case key.Matches(msg, m.keys.Cancel), msg.Type == tea.KeyCtrlC:
		m.mode = modeTable
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.title.Render("Ремонты"))
	b.WriteString("\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.form.view(m.theme))
	case modeConfirm:
		q := fmt.Sprintf("Удалить ремонт №%d?", m.confirm.id)
		if m.confirm.kind == confirmDeleteAll {
			q = fmt.Sprintf("Удалить все записи (%d)? Действие необратимо.", len(m.snap.Repairs))
		}
		b.WriteString(m.theme.modal.Render(q + "\n\n" + m.theme.help.Render("y да • n нет")))
	case modeNotice:
		text := m.notice
		if m.isError {
			text = m.theme.errText.Render(text)
		}
		b.WriteString(m.theme.modal.Render(text + "\n\n" + m.theme.help.Render("любая клавиша — закрыть")))
	case modeDetail:
		b.WriteString(m.theme.modal.Render(m.detail + "\n\n" + m.theme.help.Render("любая клавиша — закрыть")))
	default:
		b.WriteString(m.table.View())
	}

	b.WriteString("\n")
	status := m.status
	if m.busy {
		status = "…"
	}
	b.WriteString(m.theme.status.Render(status))
	b.WriteString("\n")
	b.WriteString(m.theme.help.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	ks := []key.Binding{m.keys.Add, m.keys.Edit, m.keys.Delete, m.keys.DeleteAll, m.keys.View, m.keys.Refresh, m.keys.Quit}
	parts := make([]string, 0, len(ks))
	for _, k := range ks {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
