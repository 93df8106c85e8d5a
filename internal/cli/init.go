package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qalog/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default qalog.yaml and create the documents directory",
	Long: `Write the default configuration to qalog.yaml in the project directory
and create the documents directory it points at. An existing qalog.yaml is
left alone unless --force is given.

Examples:
  qalog init
  qalog init -d /path/to/project --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing qalog.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := writeDefaultConfig(GetRootDir(), initForce)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func writeDefaultConfig(dir string, force bool) (string, error) {
	path := filepath.Join(dir, "qalog.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	defaults := config.DefaultConfig()
	if err := os.MkdirAll(defaults.DocumentsDir(dir), 0755); err != nil {
		return "", fmt.Errorf("failed to create documents directory: %w", err)
	}
	if err := defaults.Save(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
