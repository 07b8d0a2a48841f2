package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
)

// ArtifactName is the filename artifacts are published under. Devices fetch
// the binary by this fixed name, so each publish replaces the previous one.
const ArtifactName = "firmware.bin"

// Service compiles the PlatformIO project and publishes the resulting
// binary into the artifacts directory
type Service struct {
	firmware  *common.FirmwareConfig
	artifacts *common.ArtifactsConfig
	logger    arbor.ILogger
}

// NewService creates a new builder service
func NewService(firmware *common.FirmwareConfig, artifacts *common.ArtifactsConfig, logger arbor.ILogger) *Service {
	return &Service{
		firmware:  firmware,
		artifacts: artifacts,
		logger:    logger,
	}
}

// SourcePath returns the path the generated translation unit is written to
func (s *Service) SourcePath() string {
	return filepath.Join(s.firmware.Dir, s.firmware.Source)
}

// BinaryPath returns where PlatformIO leaves the compiled binary
func (s *Service) BinaryPath() string {
	return filepath.Join(s.firmware.Dir, ".pio", "build", s.firmware.PioEnv, ArtifactName)
}

// ArtifactPath returns the published binary location
func (s *Service) ArtifactPath() string {
	return filepath.Join(s.artifacts.Dir, ArtifactName)
}

// WriteSource writes generated code into the firmware project
func (s *Service) WriteSource(code string) (string, error) {
	path := s.SourcePath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create source directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return "", fmt.Errorf("failed to write firmware source: %w", err)
	}

	s.logger.Info().Str("path", path).Int("bytes", len(code)).Msg("Firmware source written")
	return path, nil
}

// Build compiles the firmware project with PlatformIO. The combined compiler
// output is returned for both success and failure so callers can store it on
// the job record.
func (s *Service) Build(ctx context.Context) (string, error) {
	timeout := 10 * time.Minute
	if d, err := time.ParseDuration(s.firmware.BuildTimeout); err == nil && d > 0 {
		timeout = d
	}

	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info().
		Str("dir", s.firmware.Dir).
		Str("env", s.firmware.PioEnv).
		Dur("timeout", timeout).
		Msg("Compiling firmware")

	cmd := exec.CommandContext(buildCtx, "pio", "run", "-e", s.firmware.PioEnv)
	cmd.Dir = s.firmware.Dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		if buildCtx.Err() == context.DeadlineExceeded {
			return string(output), fmt.Errorf("firmware build timed out after %s", timeout)
		}
		return string(output), fmt.Errorf("firmware build failed: %w", err)
	}

	s.logger.Info().Msg("Firmware compiled")
	return string(output), nil
}

// Publish copies the compiled binary into the artifacts directory. The copy
// goes through a temp file and rename so a concurrent download never reads a
// partially written binary.
func (s *Service) Publish() (string, error) {
	binPath := s.BinaryPath()
	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("firmware binary not found after compilation: %w", err)
	}

	if err := os.MkdirAll(s.artifacts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	src, err := os.Open(binPath)
	if err != nil {
		return "", fmt.Errorf("failed to open firmware binary: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.artifacts.Dir, ArtifactName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to copy firmware binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	artifactPath := s.ArtifactPath()
	if err := os.Rename(tmpPath, artifactPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}

	s.logger.Info().Str("path", artifactPath).Msg("Firmware artifact published")
	return artifactPath, nil
}

// CleanStaleArtifacts removes published binaries older than max age. Used by
// the background monitor.
func (s *Service) CleanStaleArtifacts() error {
	maxAge := 24 * time.Hour
	if d, err := time.ParseDuration(s.artifacts.MaxAge); err == nil && d > 0 {
		maxAge = d
	}

	entries, err := os.ReadDir(s.artifacts.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.artifacts.Dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove stale artifact")
				continue
			}
			s.logger.Info().Str("path", path).Msg("Removed stale artifact")
		}
	}

	return nil
}
