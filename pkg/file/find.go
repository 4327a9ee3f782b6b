package file

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// StaleOutputs returns the inputs that were modified after their output file,
// or whose output doesn't exist yet. outputFor maps an input path to its output path.
func StaleOutputs(inputs []string, outputFor func(string) string) ([]string, error) {
	var stale []string
	for _, in := range inputs {
		inInfo, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", in, err)
		}

		outInfo, err := os.Stat(outputFor(in))
		if errors.Is(err, os.ErrNotExist) {
			stale = append(stale, in)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat output of %s: %w", in, err)
		}

		if inInfo.ModTime().After(outInfo.ModTime()) {
			stale = append(stale, in)
		}
	}
	return stale, nil
}

// MarkStale backdates output to just before input's modification time, so
// StaleOutputs reports input again on its next call.
func MarkStale(input, output string) error {
	inInfo, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat %s: %w", input, err)
	}
	before := inInfo.ModTime().Add(-time.Second)
	if err := os.Chtimes(output, before, before); err != nil {
		return fmt.Errorf("backdate %s: %w", output, err)
	}
	return nil
}
