package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestRecorder_Counts verifies each recorder method lands in its metric.
func TestRecorder_Counts(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)
	r.IncPackage("collect_staged", true)
	r.IncPackage("collect_staged", true)
	r.IncPackage("regenerate", false)
	r.AddFiles(3, 1)
	r.SetManifestEntries(3)
	r.ObserveStep("copy_files", 20*time.Millisecond)
	r.SetLastSuccess(time.Unix(1714530600, 0))

	require.InDelta(t, 2, testutil.ToFloat64(r.packages.WithLabelValues("collect_staged", ResultSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.packages.WithLabelValues("regenerate", ResultFailed)), 0)
	require.InDelta(t, 3, testutil.ToFloat64(r.filesCopied), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.filesSkipped), 0)
	require.InDelta(t, 3, testutil.ToFloat64(r.manifestEntries), 0)
	require.InDelta(t, 1714530600, testutil.ToFloat64(r.lastSuccess), 0)
	require.Equal(t, 1, testutil.CollectAndCount(r.stepDuration))
}

// TestRecorder_NilIsNoop verifies a nil recorder can be used freely.
func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder

	r.IncPackage("regenerate", true)
	r.AddFiles(1, 1)
	r.SetManifestEntries(1)
	r.ObserveStep("publish", time.Second)
	r.SetLastSuccess(time.Now())
	require.Nil(t, r.Registry())
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

// TestRecorder_WriteTextfile verifies the exposition file is written.
func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)
	r.AddFiles(2, 0)

	path := filepath.Join(t.TempDir(), "update_packager.prom")
	require.NoError(t, r.WriteTextfile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "update_packager_files_copied_total 2")
}
