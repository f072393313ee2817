// Package speech implements text-to-speech through the espeak-ng
// command line synthesizer.
package speech

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/Laky-64/gologging"
	"github.com/jiuzhougroup/soulsync/api"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

var _ api.SpeechBackend = (*Espeak)(nil)

// espeak-ng takes pitch on a 0-99 scale centered at 50 and rate in words
// per minute defaulting to 175. Utterance values are relative multipliers
// centered at 1.0.
const (
	basePitch = 50
	baseRate  = 175
)

// Espeak runs one espeak-ng process per utterance. Pause and Resume stop
// and continue the process with job control signals, which keeps the
// synthesis position exactly where the listener left it.
type Espeak struct {
	binary string

	mu      sync.Mutex
	cmd     *exec.Cmd
	paused  bool
	onEnd   func()
	onError func(error)
	gen     int
}

// NewEspeak locates the synthesizer binary. A missing binary is not
// fatal here; Speak reports it per utterance so the player keeps
// working without narration.
func NewEspeak() *Espeak {
	path, err := exec.LookPath("espeak-ng")
	if err != nil {
		gologging.WarnF("speech: espeak-ng not found, narration disabled")
		return &Espeak{}
	}
	return &Espeak{binary: path}
}

// Speak cancels any running utterance and synthesizes u. Completion and
// error callbacks fire on a backend goroutine.
func (e *Espeak) Speak(u api.Utterance) {
	e.mu.Lock()
	e.stopLocked()
	e.gen++
	gen := e.gen

	if e.binary == "" {
		e.mu.Unlock()
		if u.OnError != nil {
			go u.OnError(playerrors.ErrSpeechUnavailable)
		}
		return
	}

	args := []string{
		"-p", fmt.Sprintf("%d", int(u.Pitch*basePitch)),
		"-s", fmt.Sprintf("%d", int(u.Rate*baseRate)),
	}
	if voice := utteranceVoice(u); voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, u.Text)
	cmd := exec.Command(e.binary, args...)
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		gologging.WarnF("speech: start: %v", err)
		if u.OnError != nil {
			go u.OnError(err)
		}
		return
	}

	e.cmd = cmd
	e.paused = false
	e.onEnd = u.OnEnd
	e.onError = u.OnError
	e.mu.Unlock()

	go e.wait(cmd, gen)
}

// utteranceVoice picks the -v argument: an explicit voice wins, else the
// utterance language mapped onto an identifier espeak-ng accepts.
// Region-qualified Chinese tags are rejected by older builds, which name
// Mandarin cmn.
func utteranceVoice(u api.Utterance) string {
	if u.Voice != "" {
		return u.Voice
	}
	lang := strings.ToLower(u.Lang)
	if strings.HasPrefix(lang, "zh") {
		return "cmn"
	}
	return lang
}

// wait reaps the process and fires the utterance callback unless a
// newer Speak or a Cancel superseded this one.
func (e *Espeak) wait(cmd *exec.Cmd, gen int) {
	err := cmd.Wait()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	onEnd, onError := e.onEnd, e.onError
	e.cmd = nil
	e.paused = false
	e.onEnd = nil
	e.onError = nil
	e.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onEnd != nil {
		onEnd()
	}
}

// Cancel kills the current utterance without firing its callbacks.
func (e *Espeak) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// stopLocked detaches callbacks and kills the running process.
func (e *Espeak) stopLocked() {
	e.gen++
	e.onEnd = nil
	e.onError = nil
	e.paused = false
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd = nil
}

// Pause suspends the running utterance in place.
func (e *Espeak) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.cmd.Process == nil || e.paused {
		return
	}
	if err := e.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		gologging.WarnF("speech: pause: %v", err)
		return
	}
	e.paused = true
}

// Resume continues a paused utterance.
func (e *Espeak) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.cmd.Process == nil || !e.paused {
		return
	}
	if err := e.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		gologging.WarnF("speech: resume: %v", err)
		return
	}
	e.paused = false
}

// Speaking reports whether an utterance is active, paused included.
func (e *Espeak) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil
}

// Paused reports whether the current utterance is suspended.
func (e *Espeak) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Voices lists the voices espeak-ng reports, falling back to a static
// set when the listing fails.
func (e *Espeak) Voices() []api.Voice {
	if e.binary == "" {
		return nil
	}

	out, err := exec.Command(e.binary, "--voices").Output()
	if err != nil {
		gologging.WarnF("speech: list voices: %v", err)
		return []api.Voice{
			{Name: "Mandarin", Lang: "zh-CN"},
			{Name: "English (America)", Lang: "en-US"},
		}
	}
	return ParseVoices(string(out))
}

// ParseVoices extracts voices from `espeak-ng --voices` output. Each
// data line is "Pty Language Age/Gender VoiceName File Other Languages"
// with the header skipped.
func ParseVoices(output string) []api.Voice {
	var voices []api.Voice
	for i, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 4 {
			continue
		}
		voices = append(voices, api.Voice{
			Name: fields[3],
			Lang: fields[1],
		})
	}
	return voices
}
