//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// linuxCommLength is the length the kernel truncates process names to.
const linuxCommLength = 15

// CountOtherInstances returns how many processes other than this one run the
// executable named name. The ".exe" suffix is added on Windows.
func CountOtherInstances(name string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	want := executableName(name)
	thisProcessID := os.Getpid()
	count := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if sameExecutable(process.Executable(), want) {
			count++
		}
	}

	return count, nil
}

// CurrentExecutable returns the base name of the running binary without extension.
func CurrentExecutable() string {
	name := filepath.Base(os.Args[0])
	if executable, err := os.Executable(); err == nil {
		name = filepath.Base(executable)
	}

	return strings.TrimSuffix(name, ".exe")
}

// executableName adds the platform executable suffix.
func executableName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}

	return name
}

// sameExecutable compares process names, tolerating the Linux comm truncation.
func sameExecutable(got, want string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(got, want)
	}

	if got == want {
		return true
	}

	return len(want) > linuxCommLength && got == want[:linuxCommLength]
}
