package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// GlobalUserName returns git's global user.name, or "" when git is missing or it is unset
func GlobalUserName() (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", nil
	}
	name, err := getGitConfig("user.name")
	if err != nil {
		return "", fmt.Errorf("failed to get git user.name: %w", err)
	}
	return name, nil
}

// getGitConfig gets a git config value
func getGitConfig(key string) (string, error) {
	cmd := exec.Command("git", "config", "--global", "--get", key)
	output, err := cmd.Output()
	if err != nil {
		// If key doesn't exist, return empty string
		var exitError *exec.ExitError
		if errors.As(err, &exitError) && exitError.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
