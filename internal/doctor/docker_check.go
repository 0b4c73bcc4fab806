package doctor

import (
	"fmt"

	"github.com/wsdb/wsmongo/internal/deps"
)

// DockerCheck verifies that the docker client is installed, reaches its
// daemon, and that the daemon meets the minimum version.
type DockerCheck struct {
	BaseCheck
}

// NewDockerCheck creates a new docker availability check.
func NewDockerCheck() *DockerCheck {
	return &DockerCheck{
		BaseCheck: BaseCheck{
			CheckName:        "docker",
			CheckDescription: "Check that docker is installed and meets minimum version",
			CheckCategory:    CategoryInfrastructure,
		},
	}
}

// Run checks the configured docker binary and reports its version status.
func (c *DockerCheck) Run(ctx *CheckContext) *CheckResult {
	binary, minVersion := ctx.Settings.DockerBinary, ctx.Settings.MinDockerVersion
	status, version, detail := deps.CheckDocker(binary, minVersion)

	switch status {
	case deps.DockerOK:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusOK,
			Message: fmt.Sprintf("docker %s", version),
		}

	case deps.DockerNotFound:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: fmt.Sprintf("%s not found in PATH", binary),
			Details: []string{
				"Every database runs as a docker container",
			},
			FixHint: fmt.Sprintf("Install docker: %s", deps.DockerInstallURL),
		}

	case deps.DockerTooOld:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: fmt.Sprintf("docker %s is too old (minimum: %s)", version, minVersion),
			FixHint: fmt.Sprintf("Upgrade docker: %s", deps.DockerInstallURL),
		}

	case deps.DockerExecFailed:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: "docker found but the daemon could not be reached",
			Details: []string{detail},
			FixHint: "Start the docker daemon and check that your user can access it",
		}

	case deps.DockerUnknown:
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("docker found but version could not be parsed: %s", detail),
		}
	}

	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: "unexpected docker check status",
	}
}
