//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/oshokin/update-packager/internal/domain/release"
)

// DetectAuthor builds a commit author from the current user and hostname.
// The email is synthesized as user@host.
func DetectAuthor() (release.Author, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return release.Author{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return release.Author{}, fmt.Errorf("current user: %w", err)
	}

	// Windows reports DOMAIN\user.
	username := currentUser.Username
	if idx := strings.LastIndex(username, `\`); idx >= 0 {
		username = username[idx+1:]
	}

	name := currentUser.Name
	if name == "" {
		name = username
	}

	return release.Author{
		Name:  name,
		Email: username + "@" + hostname,
	}, nil
}
