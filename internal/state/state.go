package state

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sokinpui/srcfix/internal/fs"
)

const (
	stateDirName  = ".srcfix"
	stateFileName = "state.srcfix"
	SnapshotDir   = "snapshots"
)

// Operation records one rewrite of one file.
type Operation struct {
	Path       string
	BeforeHash string // SHA256 of the content before the rewrite
	AfterHash  string // SHA256 of the content after the rewrite
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file and the snapshots.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates a state manager rooted at the git repository, or at the
// current directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager keeping its files under rootDir.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, SnapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	// First block is the current index.
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	m.state.CurrentIndex = index

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}

		entry := HistoryEntry{Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%3 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 3 {
			entry.Operations = append(entry.Operations, Operation{
				Path:       opLines[i],
				BeforeHash: opLines[i+1],
				AfterHash:  opLines[i+2],
			})
		}
		m.state.History = append(m.state.History, entry)
	}

	if m.state.CurrentIndex >= len(m.state.History) {
		return fmt.Errorf("invalid state file: index %d out of %d entries", m.state.CurrentIndex, len(m.state.History))
	}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		lines := []string{strconv.FormatInt(entry.Timestamp, 10)}
		for _, op := range entry.Operations {
			lines = append(lines, op.Path, op.BeforeHash, op.AfterHash)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	content := strings.Join(blocks, "\n\n") + "\n"
	if err := os.WriteFile(m.statePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

// Snapshot stores content under its hash and returns the hash.
func (m *Manager) Snapshot(content string) (string, error) {
	hash := fs.HashContent(content)
	path := filepath.Join(m.StateDir, SnapshotDir, hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("could not write snapshot: %w", err)
	}
	return hash, nil
}

func (m *Manager) readSnapshot(hash string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(m.StateDir, SnapshotDir, hash))
	if err != nil {
		return nil, fmt.Errorf("missing snapshot %s: %w", hash, err)
	}
	return data, nil
}

// Record snapshots both versions of a rewritten file and returns the
// operation describing the rewrite.
func (m *Manager) Record(path, before, after string) (Operation, error) {
	beforeHash, err := m.Snapshot(before)
	if err != nil {
		return Operation{}, err
	}
	afterHash, err := m.Snapshot(after)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Path: path, BeforeHash: beforeHash, AfterHash: afterHash}, nil
}

// Write adds a new set of operations to the history, dropping anything
// that could still have been redone.
func (m *Manager) Write(operations []Operation) error {
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}

	sorted := make([]Operation, len(operations))
	copy(sorted, operations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: sorted,
	})
	m.state.CurrentIndex++
	return m.save()
}

// GetOperationsToUndo returns the operations of the current history entry.
// The history pointer moves only on CommitUndo.
func (m *Manager) GetOperationsToUndo() []Operation {
	if m.state.CurrentIndex < 0 {
		return nil
	}
	return m.state.History[m.state.CurrentIndex].Operations
}

// CommitUndo marks the current entry as undone.
func (m *Manager) CommitUndo() error {
	if m.state.CurrentIndex < 0 {
		return fmt.Errorf("no operation to undo")
	}
	m.state.CurrentIndex--
	return m.save()
}

// GetOperationsToRedo returns the operations of the next undone entry.
// The history pointer moves only on CommitRedo.
func (m *Manager) GetOperationsToRedo() []Operation {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil
	}
	return m.state.History[nextIndex].Operations
}

// CommitRedo marks the next undone entry as applied again.
func (m *Manager) CommitRedo() error {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return fmt.Errorf("no operation to redo")
	}
	m.state.CurrentIndex++
	return m.save()
}

// Undo restores the content from before op, provided the file still holds
// the content op produced.
func (m *Manager) Undo(op Operation) error {
	return m.restore(op.Path, op.AfterHash, op.BeforeHash)
}

// Redo reapplies op, provided the file still holds the content from before it.
func (m *Manager) Redo(op Operation) error {
	return m.restore(op.Path, op.BeforeHash, op.AfterHash)
}

func (m *Manager) restore(path, expectHash, targetHash string) error {
	currentHash, err := fs.GetFileSHA256(path)
	if err != nil {
		return fmt.Errorf("could not hash '%s': %w", path, err)
	}
	if currentHash != expectHash {
		return fmt.Errorf("'%s' was changed since the recorded operation", path)
	}

	data, err := m.readSnapshot(targetHash)
	if err != nil {
		return err
	}
	return fs.WriteLines(path, fs.SplitLines(string(data)))
}
