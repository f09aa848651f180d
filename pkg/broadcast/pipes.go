package broadcast

import (
	"os"
)

// outputPipes connects encoder stdout and stderr to the manager.
type outputPipes struct {
	stdout, stdoutW *os.File
	stderr, stderrW *os.File
}

// openOutputPipes opens both pipes or none of them.
func openOutputPipes() (*outputPipes, error) {
	p := &outputPipes{}

	var err error
	if p.stdout, p.stdoutW, err = os.Pipe(); err != nil {
		return nil, err
	}

	if p.stderr, p.stderrW, err = os.Pipe(); err != nil {
		p.closeWriters()
		p.closeReaders()
		return nil, err
	}

	return p, nil
}

func (p *outputPipes) closeWriters() {
	if p.stdoutW != nil {
		_ = p.stdoutW.Close()
	}
	if p.stderrW != nil {
		_ = p.stderrW.Close()
	}
}

func (p *outputPipes) closeReaders() {
	if p.stdout != nil {
		_ = p.stdout.Close()
	}
	if p.stderr != nil {
		_ = p.stderr.Close()
	}
}
