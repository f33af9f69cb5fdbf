package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/workspace"
)

// ToolResolver resolves the absolute path of the remux executable. It is
// injected so hosts can decide where the tool comes from (config, PATH
// lookup, a managed install).
type ToolResolver func() (string, error)

// PathResolver resolves a fixed executable path, verifying it with LookPath
// so a relative name still works.
func PathResolver(path string) ToolResolver {
	return func() (string, error) {
		if path == "" {
			return "", fmt.Errorf("%w: no executable configured", domain.ErrToolUnavailable)
		}
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrToolUnavailable, err)
		}
		return resolved, nil
	}
}

// Remuxer re-wraps media files into a target container by shelling out to an
// ffmpeg-style executable with stream copy, so streams are never re-encoded.
type Remuxer struct {
	resolve      ToolResolver
	targetFormat string
	ws           *workspace.Manager
	logger       *slog.Logger
}

// NewRemuxer creates a remuxer producing targetFormat containers.
func NewRemuxer(resolve ToolResolver, targetFormat string, ws *workspace.Manager, logger *slog.Logger) *Remuxer {
	return &Remuxer{
		resolve:      resolve,
		targetFormat: strings.ToLower(strings.TrimPrefix(targetFormat, ".")),
		ws:           ws,
		logger:       logger,
	}
}

// TargetFormat returns the container format this remuxer produces.
func (r *Remuxer) TargetFormat() string {
	return r.targetFormat
}

// MediaType returns the media type of the produced container.
func (r *Remuxer) MediaType() string {
	return MediaTypeForFormat(r.targetFormat)
}

// Available resolves the external tool without running it. It wraps
// domain.ErrToolUnavailable on failure.
func (r *Remuxer) Available() error {
	_, err := r.resolve()
	return err
}

// Remux re-wraps inputPath into the target container and returns the output
// path. The output path is returned even on failure, since the tool may have
// partially written it and the caller owns its cleanup either way. The
// subprocess inherits ctx and is killed on cancellation.
func (r *Remuxer) Remux(ctx context.Context, inputPath string) (string, error) {
	tool, err := r.resolve()
	if err != nil {
		return "", err
	}

	outPath := r.ws.Allocate(r.targetFormat)

	// Arguments as a slice: paths with spaces arrive at the tool intact.
	cmd := exec.CommandContext(ctx, tool,
		"-y",
		"-i", inputPath,
		"-c", "copy",
		outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("remuxing", "tool", tool, "input", inputPath, "output", outPath)

	if err := cmd.Run(); err != nil {
		return outPath, fmt.Errorf("remux: %w: %s", err, diagnosticTail(stderr.String()))
	}

	return outPath, nil
}

// diagnosticTail trims tool output to its last few lines, which is where
// ffmpeg reports the actual failure.
func diagnosticTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	const keep = 4
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// MediaTypeForFormat maps a container format to its declared media type.
func MediaTypeForFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "webm":
		return "video/webm"
	case "mp4":
		return "video/mp4"
	case "mkv":
		return "video/x-matroska"
	case "ogg":
		return "video/ogg"
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
