package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
	"github.com/cristianoliveira/mailnotify/internal/delivery"
	"github.com/stretchr/testify/require"
)

func TestConsumePrintsEachPayload(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, delivery.WriteFrame(&in, []byte(`true`)))
	require.NoError(t, delivery.WriteFrame(&in, []byte(`not json`)))
	require.NoError(t, delivery.WriteFrame(&in, []byte(`{"event":"new"}`)))

	var out bytes.Buffer
	require.NoError(t, consume(&in, &out, "scriptableNotifications", clog.New(io.Discard)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "scriptableNotifications", first.Host)
	require.JSONEq(t, `true`, string(first.Payload))
	require.Contains(t, lines[1], `"payload":{"event":"new"}`)
}

func TestConsumeReportsTruncatedFrame(t *testing.T) {
	in := bytes.NewReader([]byte{10, 0, 0, 0, '{'})
	err := consume(in, io.Discard, "", clog.New(io.Discard))
	require.Error(t, err)
}
