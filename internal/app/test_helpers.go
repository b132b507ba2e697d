package app

import (
	"os"
	"testing"

	hclloader "github.com/specialistvlad/assetgrid/internal/hcl"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest creates a new app instance for system testing. Debug logs
// are captured in the returned buffer and printed when BGGO_TEST_LOGS=true.
func SetupAppTest(t *testing.T, appConfig *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	if appConfig.LogFormat == "" {
		appConfig.LogFormat = "text"
	}
	if appConfig.WorkerCount == 0 {
		appConfig.WorkerCount = 4
	}
	testApp, err := NewApp(logBuffer, appConfig, hclloader.NewLoader(), modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("BGGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
