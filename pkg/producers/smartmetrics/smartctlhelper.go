// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// smartctlCli runs smartctl and returns its raw JSON output.
type smartctlCli interface {
	scan(ctx context.Context) ([]byte, error)
	info(ctx context.Context, path, deviceType string) ([]byte, error)
	probeSATA(ctx context.Context, path string) ([]byte, error)
	health(ctx context.Context, dev Device) ([]byte, error)
}

// raidCli reports the OS drive backed by the RAID controller.
type raidCli interface {
	osDriveName(ctx context.Context) (string, error)
}

// smartctl exit status bits, see smartctl(8)
const (
	exitCommandLineError = 1 << 0
	exitDeviceOpenFailed = 1 << 1
)

func checkSmartctlInstalled(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}

type execSmartctlCli struct {
	path string
}

func newExecSmartctlCli(path string) *execSmartctlCli {
	return &execSmartctlCli{path: path}
}

// scan lists the devices smartctl can open.
func (e *execSmartctlCli) scan(ctx context.Context) ([]byte, error) {
	return e.execute(ctx, "--scan-open", "--json=c")
}

// info returns the identity information of a device.
func (e *execSmartctlCli) info(ctx context.Context, path, deviceType string) ([]byte, error) {
	return e.execute(ctx, "-d", deviceType, "-i", path, "--json=c")
}

// probeSATA reads the ATA attribute table, used to tell SATA disks from SCSI
// disks when both report as "scsi" (disk shelves).
func (e *execSmartctlCli) probeSATA(ctx context.Context, path string) ([]byte, error) {
	return e.execute(ctx, "-d", "sat", "-A", path, "--json=c")
}

// health returns the attributes and health status of a device.
func (e *execSmartctlCli) health(ctx context.Context, dev Device) ([]byte, error) {
	switch dev.Class {
	case ClassSATA, ClassNVMe:
		return e.execute(ctx, "-A", "-H", "-d", dev.Type, "--json=c", dev.Path)
	default:
		return e.execute(ctx, "-a", "-d", dev.Type, "--json=c", dev.Path)
	}
}

func (e *execSmartctlCli) execute(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.path, args...)

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: '%s': %v", ErrToolInvocation, cmd, ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: '%s': %v", ErrToolInvocation, cmd, err)
		}
		// The other bits describe the disk, the JSON output is still complete.
		code := exitErr.ExitCode()
		if code&(exitCommandLineError|exitDeviceOpenFailed) != 0 || len(out) == 0 {
			return nil, fmt.Errorf("%w: '%s' exited with status %d", ErrToolInvocation, cmd, code)
		}
		log.Debug().Str("cmd", cmd.String()).Int("exit_status", code).Msg("smartctl reported device problems")
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: '%s' returned no output", ErrToolInvocation, cmd)
	}
	return out, nil
}

type execStorcli struct {
	path string
}

func newExecStorcli(path string) *execStorcli {
	return &execStorcli{path: path}
}

// osDriveName returns the OS device of the first virtual drive of the first
// controller, e.g. /dev/sda.
func (s *execStorcli) osDriveName(ctx context.Context) (string, error) {
	if s.path == "" {
		return "", errors.New("storcli path not configured")
	}
	out, err := exec.CommandContext(ctx, s.path, "/c0/v0", "show", "all", "J").Output()
	if err != nil {
		return "", fmt.Errorf("error running storcli: %v", err)
	}
	return parseOSDriveName(out)
}

func parseOSDriveName(out []byte) (string, error) {
	if !gjson.ValidBytes(out) {
		return "", errors.New("error parsing storcli JSON")
	}
	name := gjson.GetBytes(out, "Controllers.0.Response Data.VD0 Properties.OS Drive Name").String()
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storcli reported no OS drive")
	}
	return name, nil
}
