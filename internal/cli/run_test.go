package cli_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/internal/cli"
)

func run(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer
	code := cli.Run(ctx, &out, &errOut, append([]string{"patientlists"}, args...))

	return code, out.String(), errOut.String()
}

func cleanEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())

	for _, key := range []string{
		config.EnvDatabaseDSN, config.EnvDBDriver, config.EnvHTTPAddr, config.EnvLogLevel,
		config.EnvLogFormat, config.EnvMaxListDepth, config.EnvTimezone,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func Test_Run_Usage(t *testing.T) {
	cleanEnv(t)

	for _, args := range [][]string{nil, {"--help"}, {"-h"}} {
		code, out, _ := run(t, context.Background(), args...)

		assert.Equal(t, 0, code)
		assert.Contains(t, out, "Usage: patientlists")
		assert.Contains(t, out, "serve")
		assert.Contains(t, out, "resolve --list <uuid>")
		assert.Contains(t, out, "migrate")
	}
}

func Test_Run_UnknownCommand(t *testing.T) {
	cleanEnv(t)

	code, _, errOut := run(t, context.Background(), "frobnicate")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command: frobnicate")
}

func Test_Run_InvalidConfiguration(t *testing.T) {
	cleanEnv(t)
	t.Setenv(config.EnvDBDriver, "oracle")

	code, _, errOut := run(t, context.Background(), "resolve", "--demo", "--list", cli.DemoListAwaiting)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, config.ErrInvalidDBDriver.Error())
}

func Test_Run_MissingEnvFile(t *testing.T) {
	cleanEnv(t)

	code, _, errOut := run(t, context.Background(), "--env-file", "does-not-exist.env", "resolve")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, config.ErrLoadingEnvFileFailed.Error())
}

func Test_Resolve_CommandHelp(t *testing.T) {
	cleanEnv(t)

	code, out, _ := run(t, context.Background(), "resolve", "--help")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "--patients")
	assert.Contains(t, out, "--demo")
}

func Test_Resolve_RequiresList(t *testing.T) {
	cleanEnv(t)

	code, _, errOut := run(t, context.Background(), "resolve", "--demo")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, cli.ErrListRequired.Error())
}

func Test_Resolve_DemoPatients(t *testing.T) {
	cleanEnv(t)

	code, out, errOut := run(t, context.Background(), "resolve", "--demo", "--patients", "--list", cli.DemoListAwaiting)

	require.Equal(t, 0, code, errOut)

	var output cli.ResolveOutput
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &output))
	assert.Equal(t, cli.DemoListAwaiting, output.List)
	assert.Equal(t, []string{"P-002", "P-003"}, output.Patients)
	assert.Empty(t, output.Encounters)
}

func Test_Resolve_DemoEncounters(t *testing.T) {
	cleanEnv(t)

	code, out, errOut := run(t, context.Background(), "resolve", "--demo", "-l", cli.DemoListDispensed)

	require.Equal(t, 0, code, errOut)

	var output cli.ResolveOutput
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &output))
	require.Len(t, output.Encounters, 2)
	assert.Equal(t, "enc-2", output.Encounters[0].UUID)
	assert.Equal(t, "enc-4", output.Encounters[1].UUID)
}

func Test_Resolve_UnknownDemoList(t *testing.T) {
	cleanEnv(t)

	code, _, errOut := run(t, context.Background(), "resolve", "--demo", "--list", "nope")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "patient list not found")
}

func Test_Serve_DemoUntilCanceled(t *testing.T) {
	cleanEnv(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	var errOut bytes.Buffer

	go func() {
		done <- cli.Run(ctx, &bytes.Buffer{}, &errOut, []string{"patientlists", "serve", "--demo", "--addr", addr})
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/v1/patientlists/" + cli.DemoListAwaiting + "/patients")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"patients":["P-002","P-003"]}`, string(body))

	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
