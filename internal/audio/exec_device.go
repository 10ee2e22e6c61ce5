package audio

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// ExecDevice captures raw PCM from the stdout of an external recorder
// process (arecord, sox, ffmpeg). It keeps device handling out of the
// engine; the process is the device.
type ExecDevice struct {
	command string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewExecDevice creates a device backed by the given shell command line
func NewExecDevice(command string) *ExecDevice {
	return &ExecDevice{command: command}
}

// Open starts the recorder process
func (d *ExecDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return fmt.Errorf("device already open")
	}

	args, err := shellwords.NewParser().Parse(d.command)
	if err != nil {
		return fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("capture command is empty")
	}

	cmd := exec.Command(args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture command: %w", err)
	}

	d.cmd = cmd
	d.stdout = stdout
	return nil
}

// ReadFrame fills buf with the next frame of PCM from the recorder
func (d *ExecDevice) ReadFrame(buf []byte) (int, error) {
	d.mu.Lock()
	stdout := d.stdout
	d.mu.Unlock()

	if stdout == nil {
		return 0, fmt.Errorf("device not open")
	}
	return io.ReadFull(stdout, buf)
}

// Close stops the recorder process
func (d *ExecDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}

	_ = d.stdout.Close()
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()

	d.cmd = nil
	d.stdout = nil
	return nil
}
