package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type VanillaRunner struct {
	JarName string
}

func (r *VanillaRunner) BuildCommand(javaPath string, absServerDir string, ram int, customArgs string) ([]string, error) {
	jarPath := r.JarName
	if jarPath == "" {
		jarPath = "server.jar"
	}

	jarFull := filepath.Join(absServerDir, jarPath)
	if _, err := os.Stat(jarFull); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("server jar not found at %s", jarFull)
		}
		return nil, fmt.Errorf("error accessing %s: %w", jarFull, err)
	}

	minHeap := ram
	if minHeap > 1024 {
		minHeap = 1024
	}

	args := []string{
		javaPath,
		fmt.Sprintf("-Xmx%dM", ram),
		fmt.Sprintf("-Xms%dM", minHeap),
	}

	if customArgs != "" {
		args = append(args, strings.Fields(customArgs)...)
	}

	args = append(args, "-jar", jarPath, "nogui")

	return args, nil
}
