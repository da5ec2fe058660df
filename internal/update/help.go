package update

import (
	"github.com/charmbracelet/bubbles/key"

	"planvoice/internal/views"
)

type helpKeyMap struct {
	bindings []key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.bindings }
func (k helpKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.bindings} }

func (m Model) renderHelpView() string {
	keys := helpKeyMap{bindings: []key.Binding{
		key.NewBinding(key.WithKeys(m.Keys.Add), key.WithHelp(m.Keys.Add, "添加计划")),
		key.NewBinding(key.WithKeys(m.Keys.Modify), key.WithHelp(m.Keys.Modify, "修改/删除")),
		key.NewBinding(key.WithKeys(m.Keys.Today), key.WithHelp(m.Keys.Today, "今天")),
		key.NewBinding(key.WithKeys(m.Keys.History), key.WithHelp(m.Keys.History, "历史")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "取消对话")),
		key.NewBinding(key.WithKeys(m.Keys.Quit), key.WithHelp(m.Keys.Quit, "退出")),
	}}
	return views.RenderHelpPanel(m.helpModel.View(keys))
}
