package agent

import (
	"slices"
	"testing"

	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/errors"
)

func TestNewFromConfig(t *testing.T) {
	t.Run("default returns codex", func(t *testing.T) {
		backend, err := NewFromConfig(config.Default())
		if err != nil {
			t.Fatalf("NewFromConfig returned error: %v", err)
		}
		if backend.Name() != BackendCodex {
			t.Errorf("backend.Name() = %q, want %q", backend.Name(), BackendCodex)
		}
	})

	t.Run("nil config returns error", func(t *testing.T) {
		if _, err := NewFromConfig(nil); err == nil {
			t.Fatal("NewFromConfig(nil) should return error")
		}
	})

	t.Run("case insensitive backend name", func(t *testing.T) {
		cfg := config.Default()
		cfg.Agent.Backend = " GEMINI "
		backend, err := NewFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewFromConfig returned error: %v", err)
		}
		if backend.Name() != BackendGemini {
			t.Errorf("backend.Name() = %q, want %q", backend.Name(), BackendGemini)
		}
	})

	t.Run("unknown backend returns error", func(t *testing.T) {
		cfg := config.Default()
		cfg.Agent.Backend = "unknown-backend"
		_, err := NewFromConfig(cfg)
		if !errors.Is(err, errors.ErrUnknownBackend) {
			t.Errorf("error should be ErrUnknownBackend, got: %v", err)
		}
	})

	t.Run("command override", func(t *testing.T) {
		cfg := config.Default()
		cfg.Agent.Command = "/opt/bin/codex"
		backend, _ := NewFromConfig(cfg)
		if backend.Command() != "/opt/bin/codex" {
			t.Errorf("Command() = %q, want override", backend.Command())
		}
	})
}

func TestCodexBackend_Args(t *testing.T) {
	tests := []struct {
		name     string
		approval string
		skipGit  bool
		mode     Mode
		want     []string
	}{
		{
			name:     "new session full auto",
			approval: ApprovalFullAuto,
			skipGit:  true,
			mode:     ModeNew,
			want:     []string{"exec", "--full-auto", "--skip-git-repo-check", "-"},
		},
		{
			name:     "resume full auto",
			approval: ApprovalFullAuto,
			skipGit:  true,
			mode:     ModeResume,
			want:     []string{"exec", "resume", "--last", "--full-auto", "--skip-git-repo-check", "-"},
		},
		{
			name:     "bypass",
			approval: ApprovalBypass,
			skipGit:  true,
			mode:     ModeNew,
			want:     []string{"exec", "--dangerously-bypass-approvals-and-sandbox", "--skip-git-repo-check", "-"},
		},
		{
			name:     "default approval without git check skip",
			approval: ApprovalDefault,
			mode:     ModeNew,
			want:     []string{"exec", "-"},
		},
		{
			name: "empty approval means full auto",
			mode: ModeNew,
			want: []string{"exec", "--full-auto", "-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCodexBackend(config.AgentConfig{ApprovalMode: tt.approval, SkipGitRepoCheck: tt.skipGit})
			if got := b.Args(tt.mode); !slices.Equal(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
			if b.Command() != "codex" {
				t.Errorf("Command() = %q, want codex", b.Command())
			}
		})
	}
}

func TestGeminiBackend(t *testing.T) {
	b := NewGeminiBackend(config.AgentConfig{})
	if b.SupportsResume() {
		t.Error("gemini should not support resume")
	}
	if got := b.Args(ModeResume); !slices.Equal(got, []string{"--yolo"}) {
		t.Errorf("Args(resume) = %v, want [--yolo]", got)
	}
	if got := NewGeminiBackend(config.AgentConfig{ApprovalMode: ApprovalDefault}).Args(ModeNew); len(got) != 0 {
		t.Errorf("Args() with default approval = %v, want none", got)
	}
}

func TestClaudeBackend(t *testing.T) {
	b := NewClaudeBackend(config.AgentConfig{ApprovalMode: ApprovalBypass})
	want := []string{"--print", "--continue", "--dangerously-skip-permissions"}
	if got := b.Args(ModeResume); !slices.Equal(got, want) {
		t.Errorf("Args(resume) = %v, want %v", got, want)
	}
	if got := b.Args(ModeNew); !slices.Equal(got, []string{"--print", "--dangerously-skip-permissions"}) {
		t.Errorf("Args(new) = %v", got)
	}
	if b.DisplayName() != "Claude" {
		t.Errorf("DisplayName() = %q", b.DisplayName())
	}
}

func TestMode_String(t *testing.T) {
	if ModeNew.String() != "new session" || ModeResume.String() != "resume" {
		t.Errorf("unexpected mode strings: %q, %q", ModeNew, ModeResume)
	}
}
