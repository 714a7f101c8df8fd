package core

type PasswordState int

const (
	PasswordUnset PasswordState = iota
	PasswordConfigured
	PasswordPending
)

func (s PasswordState) String() string {
	switch s {
	case PasswordConfigured:
		return "configured"
	case PasswordPending:
		return "pending"
	default:
		return "unset"
	}
}

// Password is the write-only password as seen from the settings form. A stored
// password is only ever known as Configured; its value never comes back.
type Password struct {
	State PasswordState
	value string
}

func ConfiguredPassword() Password {
	return Password{State: PasswordConfigured}
}

func PendingPassword(value string) Password {
	if value == "" {
		return Password{State: PasswordUnset}
	}
	return Password{State: PasswordPending, value: value}
}

// Value returns the typed, not yet saved password.
func (p Password) Value() (string, bool) {
	return p.value, p.State == PasswordPending
}

// Password derives the password state from the secure side channel. A
// configured password wins over a working value: the form has to be reset
// before a new value can be entered.
func (o Options) Password() Password {
	if o.SecureJSONFields[passwordKey] {
		return ConfiguredPassword()
	}
	return PendingPassword(o.SecureJSONData[passwordKey])
}
