package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/syncer"
)

type fieldKey int

const (
	fieldClientName fieldKey = iota
	fieldDeviceType
	fieldManufacturer
	fieldModel
	fieldSerialNumber
	fieldAccessories
	fieldClientAddress
	fieldStatus
	fieldIssueDescription
	fieldNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"ФИО клиента",
	"Тип устройства",
	"Изготовитель",
	"Модель",
	"Серийный номер",
	"Комплектация",
	"Адрес клиента",
	"Статус",
	"Неисправность",
	"Примечания",
}

// fieldCategories maps combo-box fields to their suggestion category.
var fieldCategories = map[fieldKey]syncer.Category{
	fieldDeviceType:   syncer.CategoryDeviceType,
	fieldManufacturer: syncer.CategoryManufacturer,
	fieldAccessories:  syncer.CategoryAccessories,
}

func isArea(k fieldKey) bool {
	return k == fieldIssueDescription || k == fieldNotes
}

// repairForm is the add/edit modal. It owns a private copy of the values, so
// a background refresh of the table never overwrites what is being typed.
type repairForm struct {
	editID uint64 // 0 — новая запись
	inputs [fieldCount]textinput.Model
	issue  textarea.Model
	notes  textarea.Model
	status int
	focus  fieldKey

	// loaded — значения виджетов сразу после открытия; с ними сравнивается правка.
	loaded       [fieldCount]string
	loadedStatus int
}

func newTextArea(value string) textarea.Model {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetWidth(48)
	ta.SetHeight(3)
	ta.SetValue(value)
	return ta
}

func newRepairForm(r *model.Repair, sugg *syncer.Suggestions) repairForm {
	f := repairForm{}
	var values model.RepairFields
	if r != nil {
		f.editID = r.ID
		values = r.Fields()
	}
	initial := [fieldCount]string{
		values.ClientName,
		values.DeviceType,
		values.Manufacturer,
		values.Model,
		values.SerialNumber,
		values.Accessories,
		values.ClientAddress,
	}
	for i := fieldKey(0); i < fieldStatus; i++ {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		ti.Width = 48
		ti.SetValue(initial[i])
		if cat, ok := fieldCategories[i]; ok && sugg != nil {
			ti.ShowSuggestions = true
			ti.SetSuggestions(sugg.Values(cat))
		}
		f.inputs[i] = ti
	}
	f.issue = newTextArea(values.IssueDescription)
	f.notes = newTextArea(values.Notes)

	if st, err := model.ParseStatus(values.Status); err == nil {
		for i, s := range model.Statuses {
			if s == st {
				f.status = i
			}
		}
	}
	for i := fieldKey(0); i < fieldCount; i++ {
		f.loaded[i] = f.value(i)
	}
	f.loadedStatus = f.status
	f.inputs[0].Focus()
	return f
}

func (f repairForm) title() string {
	if f.editID == 0 {
		return "Новый ремонт"
	}
	return "Ремонт"
}

func (f repairForm) value(k fieldKey) string {
	switch k {
	case fieldStatus:
		return string(model.Statuses[f.status])
	case fieldIssueDescription:
		return f.issue.Value()
	case fieldNotes:
		return f.notes.Value()
	}
	return f.inputs[k].Value()
}

// values returns the full field set as typed, for a new ticket.
func (f repairForm) values() model.RepairFields {
	return model.RepairFields{
		ClientName:       f.value(fieldClientName),
		DeviceType:       f.value(fieldDeviceType),
		Manufacturer:     f.value(fieldManufacturer),
		Model:            f.value(fieldModel),
		SerialNumber:     f.value(fieldSerialNumber),
		Accessories:      f.value(fieldAccessories),
		ClientAddress:    f.value(fieldClientAddress),
		Status:           f.value(fieldStatus),
		IssueDescription: f.value(fieldIssueDescription),
		Notes:            f.value(fieldNotes),
	}
}

// patch holds only the fields the operator changed since the form opened;
// untouched fields are never sent back.
func (f repairForm) patch() (model.RepairPatch, bool) {
	var p model.RepairPatch
	targets := [fieldCount]**string{
		&p.ClientName,
		&p.DeviceType,
		&p.Manufacturer,
		&p.Model,
		&p.SerialNumber,
		&p.Accessories,
		&p.ClientAddress,
		&p.Status,
		&p.IssueDescription,
		&p.Notes,
	}
	changed := false
	for i := fieldKey(0); i < fieldCount; i++ {
		if i == fieldStatus {
			if f.status == f.loadedStatus {
				continue
			}
		} else if f.value(i) == f.loaded[i] {
			continue
		}
		v := f.value(i)
		*targets[i] = &v
		changed = true
	}
	return p, changed
}

func (f *repairForm) blur(k fieldKey) {
	switch {
	case k == fieldStatus:
	case k == fieldIssueDescription:
		f.issue.Blur()
	case k == fieldNotes:
		f.notes.Blur()
	default:
		f.inputs[k].Blur()
	}
}

func (f *repairForm) move(delta int) tea.Cmd {
	f.blur(f.focus)
	f.focus = fieldKey((int(f.focus) + delta + int(fieldCount)) % int(fieldCount))
	switch f.focus {
	case fieldStatus:
		return nil
	case fieldIssueDescription:
		return f.issue.Focus()
	case fieldNotes:
		return f.notes.Focus()
	}
	return f.inputs[f.focus].Focus()
}

// update handles one key; it returns whether the form was submitted or dismissed.
// In the multi-line fields enter and the arrows edit text; tab moves on.
func (f *repairForm) update(msg tea.KeyMsg, keys KeyMap) (submit, cancel bool, cmd tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Save):
		return true, false, nil
	case msg.Type == tea.KeyEsc:
		return false, true, nil
	}
	if isArea(f.focus) {
		switch {
		case key.Matches(msg, keys.NextArea):
			return false, false, f.move(1)
		case key.Matches(msg, keys.PrevArea):
			return false, false, f.move(-1)
		case f.focus == fieldIssueDescription:
			f.issue, cmd = f.issue.Update(msg)
		default:
			f.notes, cmd = f.notes.Update(msg)
		}
		return false, false, cmd
	}

	switch {
	case key.Matches(msg, keys.Next):
		return false, false, f.move(1)
	case key.Matches(msg, keys.Prev):
		return false, false, f.move(-1)
	}
	if f.focus == fieldStatus {
		switch {
		case key.Matches(msg, keys.Left):
			f.status = (f.status + len(model.Statuses) - 1) % len(model.Statuses)
		case key.Matches(msg, keys.Right), msg.Type == tea.KeySpace:
			f.status = (f.status + 1) % len(model.Statuses)
		}
		return false, false, nil
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return false, false, cmd
}

func (f repairForm) view(th theme) string {
	var b strings.Builder
	b.WriteString(th.title.Render(f.title()))
	b.WriteString("\n\n")
	for i := fieldKey(0); i < fieldCount; i++ {
		label := th.label.Render(fieldLabels[i] + ":")
		if i == f.focus {
			label = th.focused.Render(fieldLabels[i] + ":")
		}
		var value string
		switch {
		case i == fieldStatus:
			value = statusPicker(f.status, i == f.focus, th)
		case i == fieldIssueDescription:
			value = f.issue.View()
		case i == fieldNotes:
			value = f.notes.View()
		default:
			value = f.inputs[i].View()
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label, " ", value))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(th.help.Render("ctrl+s сохранить • esc отмена • ↑/↓ поле • tab подсказка • ←/→ статус • в многострочных полях tab/shift+tab — поле"))
	return th.modal.Render(b.String())
}

func statusPicker(selected int, focused bool, th theme) string {
	parts := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		label := s.Label()
		if i == selected {
			if focused {
				label = th.focused.Render("[" + label + "]")
			} else {
				label = "[" + label + "]"
			}
		}
		parts[i] = label
	}
	return strings.Join(parts, " ")
}
