// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apbuild/apb/pkg/types"
)

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script Script
		want   string
	}{
		{
			name:   "builtin echo",
			script: Script{Name: "echo", Source: "echo hello"},
			want:   "hello\n",
		},
		{
			name:   "extra environment",
			script: Script{Name: "env", Source: `echo "$APB_MODULE"`, Env: map[string]string{"APB_MODULE": "core"}},
			want:   "core\n",
		},
		{
			name:   "positional arguments",
			script: Script{Name: "args", Source: `echo "$1 $2"`, Args: []string{"-v", "release"}},
			want:   "-v release\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			tt.script.Stdout = &out
			if err := Run(context.Background(), tt.script); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("stdout = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := Run(context.Background(), Script{Name: "write", Source: "echo built > out.txt", Dir: dir})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "built\n" {
		t.Errorf("out.txt = %q", data)
	}
}

func TestRun_ExitStatus(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Script{Name: "fail", Source: "exit 3"})
	if !errors.Is(err, ErrScriptFailed) {
		t.Fatalf("Run() error = %v, want ErrScriptFailed", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != types.ExitCode(3) {
		t.Errorf("ExitError = %+v, want code 3", exitErr)
	}
}

func TestRun_InvalidScript(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Script{Name: "broken", Source: "if then fi ("})
	if !errors.Is(err, ErrInvalidScript) {
		t.Errorf("Run() error = %v, want ErrInvalidScript", err)
	}
}
