// Package config holds the recognized configuration options for an
// index: the oracle bound L, the mOPE node capacity, and the backend
// selection. Validation is struct-tag based via go-playground/validator
// rather than hand written field checks.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Backend selects which index implementation a Client talks to.
type Backend string

const (
	POPE    Backend = "pope"
	MOPE    Backend = "mope"
	Cheater Backend = "cheater"
)

// Config is the mandatory, validated configuration for an index.
// Maxlen is ignored for the POPE and Cheater backends.
type Config struct {
	Backend Backend `validate:"required,oneof=pope mope cheater"`
	L       int     `validate:"required,gte=2"`
	Maxlen  int     `validate:"omitempty,gte=2,lte=16"`
}

// DefaultMaxlen is the mOPE node capacity (Popa et al.'s mutable OPE
// scheme uses 4 by default).
const DefaultMaxlen = 4

var validate = validator.New()

// Validate checks that c satisfies the mandatory option constraints,
// filling in DefaultMaxlen for the mOPE backend when Maxlen is left
// at its zero value.
func (c *Config) Validate() error {
	if c.Backend == MOPE && c.Maxlen == 0 {
		c.Maxlen = DefaultMaxlen
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
