package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the repair table.
type KeyMap struct {
	Add       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	DeleteAll key.Binding
	Refresh   key.Binding
	View      key.Binding
	Quit      key.Binding

	// Modal bindings.
	Confirm key.Binding
	Cancel  key.Binding
	Save    key.Binding
	Next    key.Binding
	Prev    key.Binding
	Left    key.Binding
	Right   key.Binding

	// В многострочных полях enter и стрелки редактируют текст.
	NextArea key.Binding
	PrevArea key.Binding
}

var DefaultKeyMap = KeyMap{
	Add: key.NewBinding(
		key.WithKeys("a", "+"),
		key.WithHelp("a", "добавить"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "enter"),
		key.WithHelp("e/enter", "изменить"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "удалить"),
	),
	DeleteAll: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "удалить все"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r", "f5"),
		key.WithHelp("r", "обновить"),
	),
	View: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "неисправность/примечания"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "выход"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y", "д", "Д"),
		key.WithHelp("y", "да"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "n", "N", "н", "Н"),
		key.WithHelp("esc", "отмена"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "сохранить"),
	),
	Next: key.NewBinding(
		key.WithKeys("down", "enter"),
		key.WithHelp("↓/enter", "следующее поле"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up", "shift+tab"),
		key.WithHelp("↑", "предыдущее поле"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "статус"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "статус"),
	),
	NextArea: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "следующее поле"),
	),
	PrevArea: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "предыдущее поле"),
	),
}
