package vault

import "unicode/utf8"

const (
	pinLength     = 6
	maxNameLength = 64
)

// ValidatePin checks that pin is exactly six ASCII digits
func ValidatePin(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPin
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// ValidateName checks an access card name
func ValidateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return ErrInvalidName
	}
	return nil
}
