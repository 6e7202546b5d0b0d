package release

const (
	// ManifestFilename is the per-version list of packaged files.
	ManifestFilename = "file_list.txt"

	// RegistryFilename is the list of all published versions in the update root.
	RegistryFilename = "update_list.txt"

	// ApplyLogFilename records the versions installed into a target tree.
	// It lives in the project root and is never packaged.
	ApplyLogFilename = "update_apply.txt"

	// DefaultUpdateDir is the update root relative to the project root.
	DefaultUpdateDir = "update"

	// BackupDirName holds files replaced by an applied version, under the target tree.
	BackupDirName = ".update-backup"
)

// Step names one stage of package assembly.
type Step string

// Assembly steps in execution order. StepValidate precedes all of them and
// StepRegenerate marks the entry into the path for existing versions.
const (
	StepValidate       Step = "validate"
	StepCollectStaged  Step = "collect_staged"
	StepCopyFiles      Step = "copy_files"
	StepRegenerate     Step = "regenerate"
	StepWriteManifest  Step = "write_manifest"
	StepUpdateRegistry Step = "update_registry"
	StepPublish        Step = "publish"
	StepDone           Step = "done"
)

// Steps of applying a package to a target tree.
const (
	StepInstall     Step = "install"
	StepRecordApply Step = "record_apply"
)

// Author identifies who produced a package commit.
type Author struct {
	// Name is the display name used in commit signatures.
	Name string
	// Email is the address used in commit signatures.
	Email string
}
