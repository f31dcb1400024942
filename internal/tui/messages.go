package tui

type clearStatusMsg struct{}
