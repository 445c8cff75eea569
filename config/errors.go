package config

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDriver = errors.New("config: unknown cache driver")
	ErrUnknownStore  = errors.New("config: unknown cache store")
)

// OptionError reports a store whose driver is missing a required option.
type OptionError struct {
	Store  string
	Driver Driver
	Msg    string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("config: store %q (%s): %s", e.Store, e.Driver, e.Msg)
}
