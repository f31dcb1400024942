package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	left   key.Binding
	right  key.Binding
	toggle key.Binding
	enter  key.Binding
	apply  key.Binding
	copy   key.Binding
	cancel key.Binding
}

var keys = keyMap{
	left:   key.NewBinding(key.WithKeys("left", "h")),
	right:  key.NewBinding(key.WithKeys("right", "l")),
	toggle: key.NewBinding(key.WithKeys("tab")),
	enter:  key.NewBinding(key.WithKeys("enter")),
	apply:  key.NewBinding(key.WithKeys("a")),
	copy:   key.NewBinding(key.WithKeys("y")),
	cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c")),
}
