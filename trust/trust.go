// Package trust implements the one-time per-workspace consent gate. The
// gate runs once at session start; within a session, trust is not
// re-evaluated per tool call.
package trust

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/drover/config"
	"github.com/m4xw311/drover/errors"
)

// Gate checks and records workspace trust through the config store.
type Gate struct {
	cfg *config.Config
	in  *bufio.Reader
	out io.Writer
}

// NewGate binds the gate to the store and an interactive prompt channel.
func NewGate(cfg *config.Config, in io.Reader, out io.Writer) *Gate {
	return &Gate{cfg: cfg, in: bufio.NewReader(in), out: out}
}

// IsTrusted reports whether side effects are already approved for the
// workspace path.
func (g *Gate) IsTrusted(path string) bool {
	return g.cfg.IsTrustedWorkspace(path)
}

// Trust records approval. Idempotent.
func (g *Gate) Trust(path string) error {
	return g.cfg.TrustWorkspace(path)
}

// RequestTrust prompts the user to approve side effects in the workspace.
// On approval the decision is persisted and true is returned; on refusal
// the session must not enter tool-enabled mode.
func (g *Gate) RequestTrust(path string) (bool, error) {
	fmt.Fprintf(g.out, "The model may read, write, and execute commands inside:\n  %s\n", path)
	fmt.Fprint(g.out, "Allow this for the current and future sessions? (y/n): ")

	answer, err := g.in.ReadString('\n')
	if err != nil {
		return false, errors.Wrapf(err, "could not read trust answer")
	}
	switch strings.TrimSpace(strings.ToLower(answer)) {
	case "y", "yes":
		if err := g.Trust(path); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Ensure runs the full gate: already-trusted paths pass silently, otherwise
// the user is prompted once.
func (g *Gate) Ensure(path string) (bool, error) {
	if g.IsTrusted(path) {
		return true, nil
	}
	return g.RequestTrust(path)
}
