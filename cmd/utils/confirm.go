package utils

import (
	"errors"

	"github.com/manifoldco/promptui"
)

var ErrConfirmationCancelled = errors.New("operation cancelled")

// Confirmer asks the operator to confirm a destructive action.
type Confirmer interface {
	Confirm(label string) error
}

// PromptConfirmer asks for a y/N confirmation on the terminal. Anything but an explicit yes cancels the action.
type PromptConfirmer struct{}

func (PromptConfirmer) Confirm(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	res, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return ErrConfirmationCancelled
		}
		return err
	}
	if res != "y" && res != "Y" {
		return ErrConfirmationCancelled
	}
	return nil
}

// AutoConfirmer confirms every action. It backs the --yes flag.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(string) error {
	return nil
}

var (
	_ Confirmer = PromptConfirmer{}
	_ Confirmer = AutoConfirmer{}
)
