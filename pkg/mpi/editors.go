package mpi

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecEditor runs external editor and pager commands for edit/view sessions,
// passing content through temporary files the way terminal mail clients do.
type ExecEditor struct {
	// EditorCommand and PagerCommand are shell-less command lines, split on
	// whitespace; the temp file path is appended as the last argument.
	EditorCommand string
	PagerCommand  string
}

// Edit writes the body to a temp file, runs the editor on it, and reports
// whether the user saved changes.
func (e *ExecEditor) Edit(session, title, body string) (string, bool, error) {
	file, err := os.CreateTemp("", "mume_editing_*.txt")
	if err != nil {
		return "", false, err
	}
	name := file.Name()
	defer os.Remove(name)
	if _, err := file.WriteString(body); err != nil {
		file.Close()
		return "", false, err
	}
	if err := file.Close(); err != nil {
		return "", false, err
	}
	before, err := os.Stat(name)
	if err != nil {
		return "", false, err
	}
	if err := runCommand(e.EditorCommand, name); err != nil {
		return "", false, err
	}
	after, err := os.Stat(name)
	if err != nil {
		return "", false, err
	}
	if after.ModTime().Equal(before.ModTime()) {
		// Editor closed without saving; cancel the session.
		return "", false, nil
	}
	edited, err := os.ReadFile(name)
	if err != nil {
		return "", false, err
	}
	return strings.ReplaceAll(string(edited), "\r", ""), true, nil
}

// View writes the body to a temp file and runs the pager on it.
func (e *ExecEditor) View(title, body string) error {
	file, err := os.CreateTemp("", "mume_viewing_*.txt")
	if err != nil {
		return err
	}
	name := file.Name()
	defer os.Remove(name)
	if _, err := file.WriteString(body); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return runCommand(e.PagerCommand, name)
}

func runCommand(command, path string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("mpi: empty editor command")
	}
	cmd := exec.Command(fields[0], append(fields[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
