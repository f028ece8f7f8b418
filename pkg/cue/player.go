package cue

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type PlayerOption func(*Player)

// WithCommand swaps the player binary (default aplay).
func WithCommand(command string) PlayerOption {
	return func(p *Player) {
		if command != "" {
			p.command = command
		}
	}
}

// WithFs overrides the asset filesystem, for tests.
func WithFs(fs afero.Fs) PlayerOption {
	return func(p *Player) {
		p.fs = fs
	}
}

// WithRunner overrides the subprocess invocation, for tests.
func WithRunner(run func(path string) error) PlayerOption {
	return func(p *Player) {
		p.run = run
	}
}

// NewPlayer builds a player resolving "<sound>.wav" under dir. An empty
// dir disables playback entirely.
func NewPlayer(bus *Bus, dir string, logger *zap.Logger, opts ...PlayerOption) (*Player, error) {
	p := &Player{
		bus:     bus,
		dir:     dir,
		logger:  logger,
		command: "aplay",
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.run == nil {
		p.run = p.exec
	}

	if p.fs == nil && dir != "" {
		base := afero.NewOsFs()
		if exists, err := afero.DirExists(base, dir); err != nil {
			return nil, err
		} else if !exists {
			return nil, errors.Errorf("sounds dir %s not exists", dir)
		}
		p.fs = afero.NewBasePathFs(base, dir)
	}

	return p, nil
}

type Player struct {
	bus     *Bus
	dir     string
	logger  *zap.Logger
	command string
	fs      afero.Fs
	run     func(path string) error
}

// Start subscribes the player to the bus; the returned func unsubscribes.
func (p *Player) Start() func() {
	return p.bus.Subscribe(func(c Cue) {
		p.play(c.Sound)
	})
}

// play is strictly fire-and-forget: whatever goes wrong stays logged
// here and never reaches the event path.
func (p *Player) play(sound string) {
	if p.fs == nil {
		return
	}

	name := sound + ".wav"
	if exists, err := afero.Exists(p.fs, name); err != nil || !exists {
		p.logger.With(zap.String("sound", sound)).Info("sound asset missing, skipping")
		return
	}

	if err := p.run(filepath.Join(p.dir, name)); err != nil {
		p.logger.With(zap.String("sound", sound), zap.Error(err)).Info("playback failed")
	}
}

func (p *Player) exec(path string) error {
	cmd := exec.Command(p.command, "-q", path)
	if bs, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "%s: %s", p.command, strings.TrimSpace(string(bs)))
	}
	return nil
}
