package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestConfirmModel(t *testing.T) {
	t.Run("enter keeps the default", func(t *testing.T) {
		model, cmd := confirmModel{prompt: "Merge?", choice: true}.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m := model.(confirmModel)
		require.True(t, m.done)
		require.True(t, m.choice)
		require.NotNil(t, cmd)
	})

	t.Run("y and n set the answer", func(t *testing.T) {
		model, _ := confirmModel{prompt: "Merge?"}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
		require.True(t, model.(confirmModel).choice)

		model, _ = confirmModel{prompt: "Merge?", choice: true}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("N")})
		require.False(t, model.(confirmModel).choice)
	})

	t.Run("ctrl-c cancels", func(t *testing.T) {
		model, _ := confirmModel{prompt: "Merge?"}.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.ErrorIs(t, model.(confirmModel).err, ErrPromptCanceled)
	})

	t.Run("other keys are ignored", func(t *testing.T) {
		model, cmd := confirmModel{prompt: "Merge?"}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
		require.False(t, model.(confirmModel).done)
		require.Nil(t, cmd)
	})

	t.Run("view shows the default", func(t *testing.T) {
		require.Contains(t, confirmModel{prompt: "Merge?", choice: true}.View(), "Merge? [Y/n]")
		require.Contains(t, confirmModel{prompt: "Merge?"}.View(), "Merge? [y/N]")
		require.Empty(t, confirmModel{done: true}.View())
	})
}

func TestPromptConfirmDisabled(t *testing.T) {
	t.Setenv("PRSTACK_NO_INTERACTIVE", "1")
	_, err := PromptConfirm("Merge?", false)
	require.ErrorIs(t, err, ErrInteractiveDisabled)
}
