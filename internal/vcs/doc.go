// Package vcs is the version-control collaborator of the packager.
//
// Client is the narrow contract the packaging workflow needs: list staged
// files, detect a repository, stage everything, check for a staged diff, and
// commit and push. CLI runs the git executable; GoGit does the same in
// process with go-git. Failures of the CLI backend are either ErrToolMissing
// or an *ExitError so callers can tell a missing tool from a failing command.
package vcs
