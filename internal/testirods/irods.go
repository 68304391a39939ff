package testirods

import (
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/wtsi-hgi/itest/icmd"
)

const (
	// LiveEnvKey, when set, makes tests use the real iCommands on the PATH.
	LiveEnvKey = "ITEST_LIVE"

	stateEnvKey    = "ITEST_PSEUDO_STATE"
	failEnvKey     = "ITEST_PSEUDO_FAIL"
	passwordEnvKey = "ITEST_PSEUDO_PASSWORD"
	getSizeEnvKey  = "ITEST_PSEUDO_GET_SIZE"
	sleepEnvKey    = "ITEST_PSEUDO_SLEEP"

	callsBasename = "calls"
	treeDir       = "tree"
)

//go:embed pseudo
var pseudo []byte

// Pseudo is a set of pseudo iCommands on the PATH, sharing a toy catalog.
type Pseudo struct {
	Dir   string
	State string

	t *testing.T
}

// AddPseudoICommandsToPathIfRequired adds pseudo iCommands to the PATH unless
// ITEST_LIVE is set and the real ones are available, in which case it
// returns nil.
func AddPseudoICommandsToPathIfRequired(t *testing.T) (*Pseudo, error) {
	t.Helper()

	if os.Getenv(LiveEnvKey) == "" {
		return AddPseudoICommandsToPath(t)
	}

	for _, name := range icmd.Names() {
		if _, err := exec.LookPath(name.String()); err != nil {
			return AddPseudoICommandsToPath(t)
		}
	}

	return nil, nil //nolint:nilnil
}

// AddPseudoICommandsToPath puts a pseudo version of every iCommand first in
// the PATH for the rest of the test.
func AddPseudoICommandsToPath(t *testing.T) (*Pseudo, error) {
	t.Helper()

	p := &Pseudo{Dir: t.TempDir(), State: t.TempDir(), t: t}
	names := icmd.Names()
	pseudoPath := filepath.Join(p.Dir, names[0].String())

	if err := os.WriteFile(pseudoPath, pseudo, 0700); err != nil { //nolint:gosec,mnd
		return nil, err
	}

	for _, name := range names[1:] {
		if err := os.Link(pseudoPath, filepath.Join(p.Dir, name.String())); err != nil {
			return nil, err
		}
	}

	t.Setenv("PATH", p.Dir+":"+os.Getenv("PATH"))
	t.Setenv(stateEnvKey, p.State)
	t.Setenv(failEnvKey, "")
	t.Setenv(passwordEnvKey, "")
	t.Setenv(getSizeEnvKey, "")
	t.Setenv(sleepEnvKey, "")

	return p, nil
}

// Fail makes the given iCommands write to stderr and exit 4 from now on.
func (p *Pseudo) Fail(names ...icmd.Name) {
	strs := make([]string, len(names))

	for i, name := range names {
		strs[i] = name.String()
	}

	p.t.Setenv(failEnvKey, strings.Join(strs, " "))
}

// RequirePassword makes iinit reject passwords other than the given one.
func (p *Pseudo) RequirePassword(password string) {
	p.t.Setenv(passwordEnvKey, password)
}

// SlowGet makes iget write size bytes of zeros to its local file, then sleep
// for the given number of seconds before exiting.
func (p *Pseudo) SlowGet(size int64, seconds int) {
	p.t.Setenv(getSizeEnvKey, strconv.FormatInt(size, 10))

	if seconds > 0 {
		p.t.Setenv(sleepEnvKey, strconv.Itoa(seconds))
	}
}

// Call is a record of one pseudo iCommand run.
type Call struct {
	Name    string
	Args    string
	EnvFile string
}

// String returns the command line of the call.
func (c Call) String() string {
	if c.Args == "" {
		return c.Name
	}

	return c.Name + " " + c.Args
}

// Calls returns the pseudo iCommands run so far, in order.
func (p *Pseudo) Calls() ([]Call, error) {
	data, err := os.ReadFile(filepath.Join(p.State, callsBasename))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	calls := make([]Call, 0, len(lines))

	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 3) //nolint:mnd
		for len(parts) < 3 {                   //nolint:mnd
			parts = append(parts, "")
		}

		calls = append(calls, Call{Name: parts[0], Args: parts[1], EnvFile: parts[2]})
	}

	return calls, nil
}

// CommandLines returns the command lines of Calls().
func (p *Pseudo) CommandLines() ([]string, error) {
	calls, err := p.Calls()
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(calls))

	for i, c := range calls {
		lines[i] = c.String()
	}

	return lines, nil
}

// ResetCalls forgets the calls made so far.
func (p *Pseudo) ResetCalls() error {
	err := os.Remove(filepath.Join(p.State, callsBasename))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// CollectionExists reports whether the toy catalog has the given collection.
func (p *Pseudo) CollectionExists(coll string) bool {
	info, err := os.Stat(filepath.Join(p.State, treeDir, coll))

	return err == nil && info.IsDir()
}

// ObjectExists reports whether the toy catalog has the given data object.
func (p *Pseudo) ObjectExists(obj string) bool {
	info, err := os.Stat(filepath.Join(p.State, treeDir, obj))

	return err == nil && info.Mode().IsRegular()
}

// MakeCollection adds a collection to the toy catalog.
func (p *Pseudo) MakeCollection(coll string) error {
	return os.MkdirAll(filepath.Join(p.State, treeDir, coll), 0700) //nolint:mnd
}
