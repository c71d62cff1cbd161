// Package camera acquires the image submitted for classification. Capture
// hardware is reached through an external command; the module only reads the
// file that command leaves behind.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Source returns the bytes of a freshly acquired image.
type Source interface {
	Capture(ctx context.Context) ([]byte, error)
}

// errEmptyImage is returned when the image file has no content.
var errEmptyImage = errors.New("image is empty")

// File reads an image that something else keeps up to date.
type File struct {
	// path is the image location.
	path string
}

// NewFile returns a source reading path on every capture.
func NewFile(path string) *File {
	return &File{path: filepath.Clean(path)}
}

// Capture reads the image file.
func (f *File) Capture(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", f.path, errEmptyImage)
	}

	return data, nil
}

// Command runs a capture command that writes the image, then reads it.
type Command struct {
	// name and args form the capture command line.
	name string
	args []string
	// file reads the result.
	file *File
}

// errCommandRequired is returned when no command line is given.
var errCommandRequired = errors.New("capture command must be provided")

// NewCommand returns a source running argv before reading path.
func NewCommand(argv []string, path string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errCommandRequired
	}

	return &Command{
		name: argv[0],
		args: argv[1:],
		file: NewFile(path),
	}, nil
}

// Capture runs the command under ctx and reads the image it produced.
func (c *Command) Capture(ctx context.Context) ([]byte, error) {
	//nolint:gosec // The command line comes from the operator's settings file.
	out, err := exec.CommandContext(ctx, c.name, c.args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("run capture command %s: %w: %s", c.name, err, out)
	}

	return c.file.Capture(ctx)
}
