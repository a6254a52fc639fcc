package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrSoundUnavailable is returned when the configured sound file cannot be read.
var ErrSoundUnavailable = errors.New("alert: sound file unavailable")

// CommandPlayer plays a sound file through an external command such as
// aplay, paplay, afplay or ffplay.
type CommandPlayer struct {
	// Command is the executable; Path is appended after Args.
	Command string
	Args    []string
	Path    string
}

// NewCommandPlayer returns a player for path. The command string may carry
// arguments ("ffplay -nodisp -autoexit").
func NewCommandPlayer(command, path string) *CommandPlayer {
	fields := strings.Fields(command)
	p := &CommandPlayer{Path: path}
	if len(fields) > 0 {
		p.Command = fields[0]
		p.Args = fields[1:]
	}
	return p
}

// Check verifies the sound file is a readable regular file.
func (p *CommandPlayer) Check() error {
	info, err := os.Stat(p.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSoundUnavailable, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrSoundUnavailable, p.Path)
	}
	return nil
}

// Play runs the player command and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context) error {
	if err := p.Check(); err != nil {
		return err
	}
	if p.Command == "" {
		return errors.New("alert: no player command configured")
	}

	args := append(append([]string{}, p.Args...), p.Path)
	cmd := exec.CommandContext(ctx, p.Command, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("play %s: %w: %s", p.Path, err, msg)
		}
		return fmt.Errorf("play %s: %w", p.Path, err)
	}
	return nil
}
