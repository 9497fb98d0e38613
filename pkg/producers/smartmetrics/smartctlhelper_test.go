package smartmetrics

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSmartctlScript writes a shell script that records its arguments, prints
// output and exits with status.
func fakeSmartctlScript(t *testing.T, output string, status int) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	dir := t.TempDir()
	binary = filepath.Join(dir, "smartctl")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"printf '%s' '" + output + "'\n" +
		"exit " + strconv.Itoa(status) + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0o755))
	return binary, argsFile
}

func readArgs(t *testing.T, argsFile string) string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestExecuteExitStatus(t *testing.T) {
	const output = `{"smart_status": {"passed": true}}`

	tests := []struct {
		name    string
		output  string
		status  int
		wantErr bool
	}{
		{"success", output, 0, false},
		{"command line error", output, 1, true},
		{"device open failed", output, 2, true},
		{"both failure bits", output, 3, true},
		{"smart command failed", output, 4, false},
		{"disk failing", output, 8, false},
		{"prefail attributes", output, 16, false},
		{"error log", output, 64, false},
		{"failure bit with disk bits", output, 2 | 64, true},
		{"no output", "", 0, true},
		{"disk bits without output", "", 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binary, _ := fakeSmartctlScript(t, tt.output, tt.status)
			out, err := newExecSmartctlCli(binary).scan(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrToolInvocation)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.output, string(out))
		})
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	_, err := newExecSmartctlCli(filepath.Join(t.TempDir(), "smartctl")).scan(context.Background())
	assert.ErrorIs(t, err, ErrToolInvocation)
	assert.False(t, checkSmartctlInstalled(filepath.Join(t.TempDir(), "smartctl")))
}

func TestExecuteTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	binary := filepath.Join(t.TempDir(), "smartctl")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\nexec sleep 10\n"), 0o755))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newExecSmartctlCli(binary).scan(ctx)
	assert.ErrorIs(t, err, ErrToolInvocation)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSmartctlArguments(t *testing.T) {
	binary, argsFile := fakeSmartctlScript(t, `{}`, 0)
	cli := newExecSmartctlCli(binary)
	ctx := context.Background()

	_, err := cli.scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "--scan-open --json=c", readArgs(t, argsFile))

	_, err = cli.info(ctx, "/dev/sda", "sat")
	require.NoError(t, err)
	assert.Equal(t, "-d sat -i /dev/sda --json=c", readArgs(t, argsFile))

	_, err = cli.probeSATA(ctx, "/dev/sdb")
	require.NoError(t, err)
	assert.Equal(t, "-d sat -A /dev/sdb --json=c", readArgs(t, argsFile))

	tests := map[string]string{
		"sat":        "-A -H -d sat --json=c /dev/sda",
		"nvme":       "-A -H -d nvme --json=c /dev/sda",
		"scsi":       "-a -d scsi --json=c /dev/sda",
		"megaraid,4": "-a -d megaraid,4 --json=c /dev/sda",
	}
	for deviceType, expected := range tests {
		dev, err := NewDevice("/dev/sda", deviceType)
		require.NoError(t, err)
		_, err = cli.health(ctx, dev)
		require.NoError(t, err)
		assert.Equal(t, expected, readArgs(t, argsFile))
	}
}

func TestParseOSDriveName(t *testing.T) {
	name, err := parseOSDriveName(readFixture(t, "storcli.json"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdc", name)

	_, err = parseOSDriveName([]byte(`{"Controllers": [{"Response Data": {}}]}`))
	assert.Error(t, err)

	_, err = parseOSDriveName([]byte("Controller 0 not found"))
	assert.Error(t, err)
}

func TestStorcliNotConfigured(t *testing.T) {
	_, err := newExecStorcli("").osDriveName(context.Background())
	assert.Error(t, err)
}
