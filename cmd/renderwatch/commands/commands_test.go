package commands

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/config"
)

func TestNewInvokerRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Artifact.Mode = "jit"

	if _, err := newInvoker(cfg); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewInvokerProcessMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Artifact.Mode = config.ModeProcess
	cfg.Artifact.Path = "build/raytracer"

	if _, err := newInvoker(cfg); err != nil {
		t.Fatalf("newInvoker failed: %v", err)
	}
}

func TestProcessModeWritesNextToArtifact(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script artifact")
	}
	buildDir := filepath.Join(t.TempDir(), "build")
	if err := os.Mkdir(buildDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(buildDir, "raytracer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho P3 > out.png\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Artifact.Mode = config.ModeProcess
	cfg.Artifact.Path = path
	cfg.Artifact.TempDir = t.TempDir()

	inv, err := newInvoker(cfg)
	if err != nil {
		t.Fatalf("newInvoker failed: %v", err)
	}
	if out := inv.Invoke(context.Background(), path); out.Kind != artifact.Success {
		t.Fatalf("kind = %v (err %v)", out.Kind, out.Err)
	}
	if _, err := os.Stat(filepath.Join(buildDir, "out.png")); err != nil {
		t.Errorf("relative output not written in the artifact directory: %v", err)
	}
}

func TestNewPresenterOverlay(t *testing.T) {
	cfg := config.Defaults()

	p := newPresenter(cfg, nil)
	if p.Status != nil {
		t.Error("status caption created with overlay disabled")
	}
	if p.Target.Factor != 2 || p.ImagePath != cfg.Image.Path {
		t.Errorf("presenter = %+v", p)
	}

	cfg.Overlay.Enabled = true
	p = newPresenter(cfg, nil)
	if p.Status == nil {
		t.Error("status caption missing with overlay enabled")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"watch": false, "run": false, "probe": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
