// SPDX-License-Identifier: MIT

// Package capture owns the external device bridge process that publishes the
// biosignal stream.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"eeg/internal/log"
)

// ErrKilled is returned by Stop when the process ignored the terminate
// request and had to be killed.
var ErrKilled = errors.New("capture: process did not exit in time and was killed")

// Process is a running capture command.
type Process struct {
	name string
	cmd  Commander

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Launch starts name with args using exec. A nil exec uses DefaultExecutor.
func Launch(exec Executor, name string, args ...string) (*Process, error) {
	if name == "" {
		return nil, errors.New("capture: empty command")
	}
	if exec == nil {
		exec = DefaultExecutor
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("capture: start %s: %w", name, err)
	}

	p := &Process{
		name: strings.TrimSpace(name + " " + strings.Join(args, " ")),
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	log.Infof("Capture: Started %q (pid %d)", p.name, cmd.Pid())
	return p, nil
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has already exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the process exit error once Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.waitErr
}

// Stop asks the process to terminate and waits up to timeout for it to exit,
// then kills it. Only the first call does any work; later calls return the
// same result.
func (p *Process) Stop(timeout time.Duration) error {
	p.stopOnce.Do(func() { p.stopErr = p.stop(timeout) })
	return p.stopErr
}

func (p *Process) stop(timeout time.Duration) error {
	if p.Exited() {
		log.Debugf("Capture: %q already exited: %v", p.name, p.waitErr)
		return nil
	}

	log.Infof("Capture: Terminating %q", p.name)
	if err := p.cmd.Terminate(); err != nil {
		log.Warnf("Capture: Terminate %q failed: %v", p.name, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		log.Infof("Capture: %q exited", p.name)
		return nil
	case <-timer.C:
	}

	log.Warnf("Capture: %q still running after %v, killing", p.name, timeout)
	if err := p.cmd.Kill(); err != nil {
		return fmt.Errorf("capture: kill %s: %w", p.name, err)
	}
	timer.Reset(timeout)
	select {
	case <-p.done:
	case <-timer.C:
		return fmt.Errorf("capture: %s did not exit after kill", p.name)
	}
	return ErrKilled
}
