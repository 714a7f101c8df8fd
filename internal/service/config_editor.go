package service

import (
	"errors"
	"fmt"
	"mongods/internal/core"
)

// Settings form field names used by change events.
const (
	FieldURL           = "url"
	FieldDatabase      = "database"
	FieldUser          = "user"
	FieldMaxResults    = "maxResults"
	FieldPassword      = "password"
	FieldResetPassword = "resetPassword"
)

var ErrUnknownField = errors.New("unknown settings field")

// ChangeEvent is one edit made in the settings form.
type ChangeEvent struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ConfigEditor binds the connection settings form to options provided by the
// host. It holds no state of its own: every handler derives a new Options from
// the one it was created with and hands it to onOptionsChange.
type ConfigEditor struct {
	options         core.Options
	onOptionsChange func(core.Options)
}

func NewConfigEditor(options core.Options, onOptionsChange func(core.Options)) *ConfigEditor {
	return &ConfigEditor{
		options:         options,
		onOptionsChange: onOptionsChange,
	}
}

func (e *ConfigEditor) OnURLChange(value string) {
	e.emit(e.options.WithURL(value))
}

func (e *ConfigEditor) OnDatabaseChange(value string) {
	e.emit(e.options.WithDatabase(value))
}

func (e *ConfigEditor) OnUserChange(value string) {
	e.emit(e.options.WithUser(value))
}

// OnMaxResultsChange does not validate: text that is not a number becomes NaN.
func (e *ConfigEditor) OnMaxResultsChange(value string) {
	e.emit(e.options.WithMaxResults(core.ParseLimit(value)))
}

// Secure field (only sent to the backend)
func (e *ConfigEditor) OnPasswordChange(value string) {
	e.emit(e.options.WithPassword(value))
}

func (e *ConfigEditor) OnResetPassword() {
	e.emit(e.options.WithPasswordReset())
}

func (e *ConfigEditor) emit(options core.Options) {
	if e.onOptionsChange != nil {
		e.onOptionsChange(options)
	}
}

// FieldView is the render model of a plain text input.
type FieldView struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
}

// SecretFieldView is the render model of the password input. When Configured
// is set the stored value is not available and Value is always empty.
type SecretFieldView struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
	Configured  bool   `json:"configured"`
}

type ConfigView struct {
	URL        FieldView       `json:"url"`
	Database   FieldView       `json:"database"`
	User       FieldView       `json:"user"`
	Password   SecretFieldView `json:"password"`
	MaxResults FieldView       `json:"maxResults"`
}

func (e *ConfigEditor) View() ConfigView {
	settings := e.options.Settings()

	password := SecretFieldView{
		Label:       "Password",
		Placeholder: "password",
		Configured:  settings.Password.State == core.PasswordConfigured,
	}
	if v, ok := settings.Password.Value(); ok {
		password.Value = v
	}

	return ConfigView{
		URL:        FieldView{Label: "URL", Value: settings.Address, Placeholder: "mongodb://localhost:27017"},
		Database:   FieldView{Label: "Database", Value: settings.Database, Placeholder: "database name"},
		User:       FieldView{Label: "User", Value: settings.User, Placeholder: "user"},
		Password:   password,
		MaxResults: FieldView{Label: "Max Results", Value: limitText(settings.MaxResults), Placeholder: "1000"},
	}
}

// limitText mirrors `value || ''`: unset, zero and NaN show an empty input.
func limitText(l *core.Limit) string {
	if l == nil || l.IsNaN() || *l == 0 {
		return ""
	}
	return l.String()
}

// ApplyChange runs a single change event through a ConfigEditor and returns
// the options it produced.
func ApplyChange(options core.Options, event ChangeEvent) (core.Options, error) {
	result := options
	editor := NewConfigEditor(options, func(o core.Options) { result = o })

	switch event.Field {
	case FieldURL:
		editor.OnURLChange(event.Value)
	case FieldDatabase:
		editor.OnDatabaseChange(event.Value)
	case FieldUser:
		editor.OnUserChange(event.Value)
	case FieldMaxResults:
		editor.OnMaxResultsChange(event.Value)
	case FieldPassword:
		editor.OnPasswordChange(event.Value)
	case FieldResetPassword:
		editor.OnResetPassword()
	default:
		return options, fmt.Errorf("%w: %q", ErrUnknownField, event.Field)
	}
	return result, nil
}
