package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		to   string
		text string
		ok   bool
	}{
		{"@bob hello there", "bob", "hello there", true},
		{"  @bob   hi  ", "bob", "hi", true},
		{"bob hi", "", "", false},
		{"@bob", "", "", false},
		{"@ hi", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req := require.New(t)
			to, text, ok := parseLine(tt.line)
			req.Equal(tt.ok, ok)
			req.Equal(tt.to, to)
			req.Equal(tt.text, text)
		})
	}
}

func TestPrintReceived(t *testing.T) {
	req := require.New(t)
	color.Enable = false
	var out bytes.Buffer

	// Given a persisted record and a raw delivery
	var persisted received
	persisted.Data.FromUID = "alice"
	persisted.Data.Message = "hi"
	persisted.Data.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	var raw received
	raw.Data.From = "carol"
	raw.Data.Text = "store down"

	printReceived(&out, persisted)
	printReceived(&out, raw)

	// Then both render the sender and the text
	req.Contains(out.String(), "[alice] hi")
	req.Contains(out.String(), "[carol] store down")
}

type recordingWriter struct {
	frames []frame
}

func (w *recordingWriter) WriteJSON(v any) error {
	w.frames = append(w.frames, v.(frame))
	return nil
}

func TestSendLines_Returns_When_Cancelled_While_Input_Blocks(t *testing.T) {
	req := require.New(t)

	// Given an input that never produces a line
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	lines := scanLines(pr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sendLines(ctx, &recordingWriter{}, "alice", lines) }()

	// When the session is interrupted
	cancel()

	// Then sending stops without waiting for stdin
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("sendLines kept waiting for input after cancellation")
	}
}

func TestSendLines_Sends_Valid_Lines_Until_EOF(t *testing.T) {
	req := require.New(t)
	color.Enable = false
	writer := &recordingWriter{}

	err := sendLines(context.Background(), writer, "alice",
		scanLines(strings.NewReader("@bob hi\nnot a message\n@carol hey there\n")))

	req.ErrorIs(err, io.EOF)
	req.Len(writer.frames, 2)
	req.Equal("message", writer.frames[0].Event)
	req.Equal(map[string]string{"fromUid": "alice", "toUid": "bob", "text": "hi"}, writer.frames[0].Data)
	req.Equal(map[string]string{"fromUid": "alice", "toUid": "carol", "text": "hey there"}, writer.frames[1].Data)
}
