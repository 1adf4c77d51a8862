package strategy

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

type ForgeRunner struct{}

func (r *ForgeRunner) BuildCommand(javaPath string, absServerDir string, ram int, customArgs string) ([]string, error) {
	librariesDir := filepath.Join(absServerDir, "libraries")
	var argsFile string
	targetFile := "unix_args.txt"
	if runtime.GOOS == "windows" {
		targetFile = "win_args.txt"
	}

	if _, err := os.Stat(librariesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("libraries directory not found in %s (required for Forge/NeoForge)", librariesDir)
	}

	err := filepath.WalkDir(librariesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == targetFile {
			argsFile = path
			return io.EOF
		}
		return nil
	})

	if argsFile == "" {
		if err != io.EOF {
			return nil, fmt.Errorf("args file %s not found in libraries", targetFile)
		}
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

	userJvmArgs := filepath.Join(absServerDir, "user_jvm_args.txt")
	if _, err := os.Stat(userJvmArgs); err == nil {
		args = append(args, fmt.Sprintf("@%s", userJvmArgs))
	}

	if customArgs != "" {
		args = append(args, strings.Fields(customArgs)...)
	}

	args = append(args, fmt.Sprintf("@%s", argsFile))
	args = append(args, "nogui")

	return args, nil
}
