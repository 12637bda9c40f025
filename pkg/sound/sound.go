// Package sound plays short wav cues through the speaker.
package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

type Player struct {
	soundsToPlay chan string
	logger       *zap.SugaredLogger
}

// NewPlayer opens the speaker and starts playing queued sounds. If the
// speaker can't be opened, queued sounds are logged and dropped.
func NewPlayer(logger *zap.SugaredLogger) *Player {
	p := &Player{
		soundsToPlay: make(chan string),
		logger:       logger.Named("sound"),
	}
	go p.loop()
	return p
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("Sound playback crashed", "panic", r)
		}
		for s := range p.soundsToPlay {
			p.logger.Warnw("Unable to play", "sound", s)
		}
	}()
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.logger.Warnw("Failed to open speaker", "error", err)
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		// A new cue cuts off the one still playing.
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			p.logger.Warnw("Failed to open sound", "sound", soundToPlay, "error", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			p.logger.Warnw("Failed to decode sound", "sound", soundToPlay, "error", err)
			f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}

// Play queues a sound without blocking the caller for more than a few
// milliseconds. An empty path, or a nil Player, plays nothing.
func (p *Player) Play(path string) {
	if p == nil || path == "" {
		return
	}
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		p.logger.Debugw("Timed out trying to play sound", "sound", path)
	}
}

func (p *Player) Close() {
	if p == nil {
		return
	}
	close(p.soundsToPlay)
}
