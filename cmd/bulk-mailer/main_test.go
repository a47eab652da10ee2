package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shineum/bulk-mailer/internal/config"
	"github.com/shineum/bulk-mailer/internal/session"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseFlags([]string{
		"-c", "/etc/bulk-mailer.yaml",
		"-m", "news.eml",
		"-r", "Ann <a@x>",
		"--recipient", `"Doe, Jane" <j@x>`,
		"-f", "list.txt",
		"-v",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.configPath != "/etc/bulk-mailer.yaml" {
		t.Errorf("configPath: got %q", opts.configPath)
	}
	if opts.messageFile != "news.eml" {
		t.Errorf("messageFile: got %q", opts.messageFile)
	}
	if len(opts.recipients) != 2 || opts.recipients[1] != `"Doe, Jane" <j@x>` {
		t.Errorf("recipients: got %q", opts.recipients)
	}
	if opts.recipientsFile != "list.txt" {
		t.Errorf("recipientsFile: got %q", opts.recipientsFile)
	}
	if !opts.verbose {
		t.Error("verbose: got false")
	}
	if opts.showVersion {
		t.Error("showVersion: got true")
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag, got nil")
	}
}

func TestApplyFlags(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Message.File = "from-config.eml"
	cfg.Logging.Level = "info"

	applyFlags(cfg, &options{recipientsFile: "list.txt", verbose: true})

	if cfg.Message.File != "from-config.eml" {
		t.Errorf("Message.File: got %q (unset flag must not override)", cfg.Message.File)
	}
	if cfg.Recipients.File != "list.txt" {
		t.Errorf("Recipients.File: got %q", cfg.Recipients.File)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want debug", cfg.Logging.Level)
	}
}

func TestPreload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(list, []byte("Bob <b@x>\nAnn <a2@x>\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	msgPath := filepath.Join(dir, "news.eml")
	if err := os.WriteFile(msgPath, []byte("Subject: News\r\n\r\nBody\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Recipients.File = list
	cfg.Message.File = msgPath

	sess := session.New()
	if err := preload(sess, cfg, []string{"Ann <a@x>"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, r := range sess.Recipients.All() {
		names = append(names, r.Name)
	}
	if len(names) != 3 || names[0] != "Ann" || names[1] != "Bob" || names[2] != "Ann" {
		t.Errorf("recipients: got %v, want flag entries before file entries", names)
	}
	if msg := sess.Message.Current(); msg == nil || msg.Subject != "News" {
		t.Errorf("message not preloaded: %+v", msg)
	}
}

func TestPreload_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		recipients []string
		cfg        func(*config.Config)
	}{
		{name: "bad recipient", recipients: []string{"garbage"}, cfg: func(*config.Config) {}},
		{name: "missing recipient file", cfg: func(c *config.Config) { c.Recipients.File = "/nonexistent/list.txt" }},
		{name: "missing message file", cfg: func(c *config.Config) { c.Message.File = "/nonexistent/news.eml" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{}
			tt.cfg(cfg)
			if err := preload(session.New(), cfg, tt.recipients); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSelectTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport string
		graph     config.GraphConfig
		want      string
		wantErr   bool
	}{
		{transport: "smtp", want: "smtp"},
		{transport: "", want: "smtp"},
		{transport: "stdout", want: "stdout"},
		{transport: "graph", graph: config.GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}, want: "msgraph"},
		{transport: "ses", wantErr: true},
		{transport: "pigeon", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.transport, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{}
			cfg.Dispatch.Transport = tt.transport
			cfg.Graph = tt.graph

			tr, err := selectTransport(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Name() != tt.want {
				t.Errorf("Name(): got %q, want %q", tr.Name(), tt.want)
			}
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "bulk-mailer.log")
	f, err := openLogFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
