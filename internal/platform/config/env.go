// Package config handles environment parsing and fatal exits for brigade
// entry points.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the process environment. Brigade commands
// declare their variables with env tags under the BRIGADE_ prefix.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
