package deps

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DockerInstallURL is the installation page for the docker engine.
const DockerInstallURL = "https://docs.docker.com/engine/install/"

// DockerStatus represents the state of the docker installation.
type DockerStatus int

const (
	DockerOK         DockerStatus = iota // client found, server reachable, version compatible
	DockerNotFound                       // binary not in PATH
	DockerTooOld                         // server version below the minimum
	DockerExecFailed                     // binary found but the server could not be queried
	DockerUnknown                        // server answered but the version couldn't be parsed
)

var dockerVersionRe = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// CheckDocker checks that binary is installed, can reach its daemon, and
// that the daemon is at least minVersion.
// Returns status, the server version (if found), and diagnostic detail for
// failure cases.
func CheckDocker(binary, minVersion string) (DockerStatus, string, string) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return DockerNotFound, "", ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, "version", "--format", "{{.Server.Version}}")
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return DockerExecFailed, "", fmt.Sprintf("at %s: %s", path, detail)
	}

	version := parseDockerVersion(string(output))
	if version == "" {
		return DockerUnknown, "", strings.TrimSpace(string(output))
	}

	if !AtLeast(version, minVersion) {
		return DockerTooOld, version, ""
	}
	return DockerOK, version, ""
}

func parseDockerVersion(output string) string {
	m := dockerVersionRe.FindStringSubmatch(output)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}
