package models

import "fmt"

type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// Code returns the single-letter OCC symbol component.
func (t OptionType) Code() string {
	if t == OptionTypePut {
		return "P"
	}

	return "C"
}

func (t OptionType) Validate() error {
	switch t {
	case OptionTypeCall, OptionTypePut:
		return nil
	default:
		return fmt.Errorf("%w: invalid option type: %s", ErrInvalidInstrument, t)
	}
}
