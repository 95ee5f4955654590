package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/bywater/internal/database"
)

type fakeS3 struct {
	keys []string
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, *input.Key)
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, nil
}

func TestRunOnceUploadsEncryptedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fake := &fakeS3{}
	m := NewManager(Config{Passphrase: "pass"}, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.client = fake

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if len(fake.keys) != 1 {
		t.Fatalf("uploads = %d, want 1", len(fake.keys))
	}
	if !strings.HasPrefix(fake.keys[0], "backups/bywater-") || !strings.HasSuffix(fake.keys[0], ".db.enc") {
		t.Errorf("key = %q", fake.keys[0])
	}

	snapshot, err := Decrypt(fake.body, "pass")
	if err != nil {
		t.Fatalf("decrypt uploaded snapshot: %v", err)
	}
	if !bytes.HasPrefix(snapshot, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a sqlite database")
	}
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if m.Enabled() {
		t.Error("manager should be disabled without credentials")
	}
	if err := m.RunOnce(context.Background()); err == nil {
		t.Error("expected error when not configured")
	}
}
