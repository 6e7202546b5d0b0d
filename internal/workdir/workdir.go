// Package workdir scopes changes of the process working directory.
package workdir

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
)

// Within runs fn with dir as the working directory and restores the previous
// one afterwards, whatever fn returns. A failed restore is joined to fn's error.
func Within(dir string, fn func() error) (err error) {
	previous, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	if err = os.Chdir(dir); err != nil {
		return fmt.Errorf("enter %s: %w", dir, err)
	}

	defer func() {
		if restoreErr := os.Chdir(previous); restoreErr != nil {
			err = multierr.Append(err, fmt.Errorf("restore working directory %s: %w", previous, restoreErr))
		}
	}()

	return fn()
}
