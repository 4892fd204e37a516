package delivery

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"event":"new"}`)))
	require.NoError(t, WriteFrame(&buf, []byte("true")))

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, `{"event":"new"}`, string(first))
	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, "true", string(second))
	_, err = ReadFrame(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("truncated")))
	data := buf.Bytes()[:6]

	_, err := ReadFrame(bytes.NewReader(data))
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
}

func TestManifestResolver(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "scriptableNotifications", `{"name":"scriptableNotifications","path":"bin/host.sh","type":"stdio"}`)
	writeManifest(t, dir, "mismatch", `{"name":"other","path":"/bin/true","type":"stdio"}`)
	writeManifest(t, dir, "wrongtype", `{"name":"wrongtype","path":"/bin/true","type":"pkcs11"}`)
	resolve := ManifestResolver(dir)

	host, err := resolve("scriptableNotifications")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "bin/host.sh"), host.Path)
	require.Equal(t, []string{filepath.Join(dir, "scriptableNotifications.json"), Origin}, host.Args)

	_, err = resolve("missing")
	require.ErrorIs(t, err, ErrHostNotFound)
	_, err = resolve("../escape")
	require.ErrorIs(t, err, ErrHostNotFound)
	_, err = resolve("mismatch")
	require.Error(t, err)
	_, err = resolve("wrongtype")
	require.Error(t, err)
}

func TestCommandResolver(t *testing.T) {
	host, err := CommandResolver("/usr/bin/consumer --flag")("x")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/consumer", host.Path)
	require.Equal(t, []string{"--flag"}, host.Args)

	_, err = CommandResolver("  ")("x")
	require.ErrorIs(t, err, ErrHostNotFound)
}

// writeHostScript creates a shell host that appends its stdin to out.
func writeHostScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hosts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "host.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func readFrames(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := bytes.NewReader(data)
	var frames []string
	for {
		frame, err := ReadFrame(r)
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, string(frame))
	}
}

func TestNativeSendOnce(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.bin")
	script := writeHostScript(t, `cat >> "`+out+`"`)
	transport := NewNativeTransport(CommandResolver(script), time.Second)

	require.NoError(t, transport.SendOnce(context.Background(), "test", []byte("true")))
	require.NoError(t, transport.SendOnce(context.Background(), "test", []byte("false")))

	require.Equal(t, []string{"true", "false"}, readFrames(t, out))
}

func TestNativeSendOnceReportsHostFailure(t *testing.T) {
	script := writeHostScript(t, "cat > /dev/null; exit 3")
	transport := NewNativeTransport(CommandResolver(script), time.Second)
	transport.Stderr = io.Discard

	err := transport.SendOnce(context.Background(), "test", []byte("true"))
	require.ErrorContains(t, err, "failed")
}

func TestNativeSendOnceTimesOut(t *testing.T) {
	script := writeHostScript(t, "exec sleep 5")
	transport := NewNativeTransport(CommandResolver(script), 50*time.Millisecond)

	err := transport.SendOnce(context.Background(), "test", []byte("true"))
	require.Error(t, err)
}

func TestNativeConnectStreamsFrames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.bin")
	script := writeHostScript(t, `cat >> "`+out+`"`)
	transport := NewNativeTransport(CommandResolver(script), time.Second)
	ctx := context.Background()

	conn, err := transport.Connect(ctx, "test")
	require.NoError(t, err)
	require.NoError(t, conn.Post(ctx, []byte(`{"event":"start"}`)))
	require.NoError(t, conn.Post(ctx, []byte(`{"event":"new"}`)))
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	require.Equal(t, []string{`{"event":"start"}`, `{"event":"new"}`}, readFrames(t, out))
	require.Error(t, conn.Post(ctx, []byte("true")))
}

func TestNativePostHonoursDeadlineWhenHostStopsReading(t *testing.T) {
	script := writeHostScript(t, "exec sleep 30")
	transport := NewNativeTransport(CommandResolver(script), time.Second)

	conn, err := transport.Connect(context.Background(), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = conn.Post(ctx, bytes.Repeat([]byte("x"), 1<<20))

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.Less(t, time.Since(start), 5*time.Second)
	require.ErrorIs(t, conn.Post(context.Background(), []byte("true")), ErrConnectionClosed)
	require.NoError(t, conn.Close())
}

func TestNativeConfigureSwitchesHost(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.bin")
	second := filepath.Join(dir, "second.bin")
	transport := NewNativeTransport(CommandResolver(writeHostScript(t, `cat >> "`+first+`"`)), time.Second)

	require.NoError(t, transport.SendOnce(context.Background(), "test", []byte("true")))
	transport.Configure(CommandResolver(writeHostScript(t, `cat >> "`+second+`"`)), 0)
	require.NoError(t, transport.SendOnce(context.Background(), "test", []byte("false")))

	require.Equal(t, []string{"true"}, readFrames(t, first))
	require.Equal(t, []string{"false"}, readFrames(t, second))
	_, timeout := transport.settings()
	require.Equal(t, DefaultTimeout, timeout)
}

func TestNativeConnectUnknownHost(t *testing.T) {
	transport := NewNativeTransport(ManifestResolver(t.TempDir()), time.Second)
	_, err := transport.Connect(context.Background(), "scriptableNotifications")
	require.ErrorIs(t, err, ErrHostNotFound)
}
