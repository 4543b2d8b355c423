package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spboyer/debugprompt/internal/projectconfig"
	"github.com/spboyer/debugprompt/internal/utils"
)

// loadConfig loads .debugprompt.yaml from dir (or its parents) and applies
// environment overrides.
func loadConfig(dir string) (*projectconfig.ProjectConfig, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := projectconfig.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideOutputDir points cfg at dir, resolved from the working directory.
func overrideOutputDir(cfg *projectconfig.ProjectConfig, dir string) {
	if dir == "" {
		return
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	cfg.OutputDir = utils.ResolvePath(dir, wd)
}

// lockedWriter serializes writes from the test stream and the plugin.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
