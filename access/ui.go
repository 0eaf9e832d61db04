package access

import (
	"io"
	"log"
)

// UI is the rendering collaborator. The controller decides what to show;
// the UI decides where.
type UI interface {
	SetStatus(state State, text string)
	SetTrigger(enabled bool, label string)
	ShowProgress(visible bool)
	ShowSuccess(message string)
	ShowError(message string)
}

// ConsoleUI renders to a logger, for headless use.
type ConsoleUI struct {
	logger *log.Logger
}

func NewConsoleUI(w io.Writer) *ConsoleUI {
	return &ConsoleUI{logger: log.New(w, "", log.LstdFlags)}
}

func (u *ConsoleUI) SetStatus(state State, text string) {
	u.logger.Printf("[status] %s - %s\n", state, text)
}

func (u *ConsoleUI) SetTrigger(enabled bool, label string) {
	mark := "disabled"
	if enabled {
		mark = "enabled"
	}
	u.logger.Printf("[button] %s (%s)\n", label, mark)
}

func (u *ConsoleUI) ShowProgress(visible bool) {
	if visible {
		u.logger.Println("[spinner] ...")
	}
}

func (u *ConsoleUI) ShowSuccess(message string) {
	u.logger.Printf("[success] %s\n", message)
}

func (u *ConsoleUI) ShowError(message string) {
	u.logger.Printf("[error] %s\n", message)
}
