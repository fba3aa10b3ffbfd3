// Package tui holds the interactive prompts.
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return defaultValue, err
	}
	return result, nil
}

// AuthorizationCode asks for the one-time code the authorization page shows.
func AuthorizationCode(authURL string) (string, error) {
	var code string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Authorize dcadmin").
				Description("If no browser opened, visit:\n"+authURL),
			huh.NewInput().
				Title("Authorization code").
				Placeholder("paste the code shown after login").
				Value(&code).
				Validate(requireNonBlank),
		),
	).Run()
	return strings.TrimSpace(code), err
}

func requireNonBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required")
	}
	return nil
}
