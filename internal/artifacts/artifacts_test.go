package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
)

var fixed = time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

func TestFileName(t *testing.T) {
	if got, want := fileName(fixed, "cycle 3: login/failed"), "2026-05-04T03-02-01-cycle-3-login-failed.png"; got != want {
		t.Errorf("fileName = %s, want %s", got, want)
	}
	if got := fileName(fixed, "///"); got != "2026-05-04T03-02-01-screenshot.png" {
		t.Errorf("fileName of junk = %s", got)
	}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := NewDirSink(dir)
	s.now = func() time.Time { return fixed }

	loc, err := s.Save(context.Background(), "cycle-1", []byte("png"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc != filepath.Join(dir, "2026-05-04T03-02-01-cycle-1.png") {
		t.Errorf("location = %s", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "png" {
		t.Errorf("file = %q, %v", data, err)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	s := newS3Sink(client, " shots ", "/falix/ci/")
	s.now = func() time.Time { return fixed }

	loc, err := s.Save(context.Background(), "single-shot", []byte{0x89, 'P'})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc != "s3://shots/falix/ci/2026-05-04T03-02-01-single-shot.png" {
		t.Errorf("location = %s", loc)
	}
	if *client.input.Bucket != "shots" || *client.input.ContentType != "image/png" {
		t.Errorf("input = %+v", client.input)
	}
	if string(client.body) != "\x89P" {
		t.Errorf("body = %q", client.body)
	}
}

func TestMultiSinkKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	broken := newS3Sink(&fakeS3{err: errors.New("AccessDenied")}, "b", "")
	m := MultiSink{broken, NewDirSink(dir)}

	loc, err := m.Save(context.Background(), "x", []byte("png"))
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("err = %v", err)
	}
	if !strings.HasPrefix(loc, dir) {
		t.Errorf("location = %q, want the directory copy", loc)
	}
}

func TestFromConfig(t *testing.T) {
	if s := FromConfig(context.Background(), config.ScreenshotConfig{}, logging.Discard()); s != nil {
		t.Errorf("FromConfig with nothing enabled = %v", s)
	}
	s := FromConfig(context.Background(), config.ScreenshotConfig{Dir: t.TempDir()}, logging.Discard())
	if m, ok := s.(MultiSink); !ok || len(m) != 1 {
		t.Errorf("FromConfig = %#v", s)
	}
}
