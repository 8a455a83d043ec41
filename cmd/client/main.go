package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	ws "github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:3000/ws"`
	UID       string `envconfig:"CHAT_UID" required:"true"`
	// CHAT_COLOURS enables colorized output
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type received struct {
	Event string `json:"event"`
	Data  struct {
		FromUID   string    `json:"fromUid"`
		Message   string    `json:"message"`
		From      string    `json:"from"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"data"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := ws.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(frame{Event: "register", Data: config.UID}); err != nil {
		return exitRuntime, fmt.Errorf("register: %w", err)
	}
	color.Info.Printf(">>> Connected to %s as %s. Type \"@someone message\" (Ctrl+C to quit)\n",
		config.ServerURL, config.UID)

	// Stdin cannot be interrupted, so it is read outside the group.
	lines := scanLines(os.Stdin)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readSocket(conn, os.Stdout) })
	g.Go(func() error { return sendLines(gctx, conn, config.UID, lines) })
	g.Go(func() error {
		<-gctx.Done()
		// A second Ctrl+C kills the process
		stop()
		_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		return conn.Close()
	})

	if err := g.Wait(); err != nil && !isClosed(err) {
		return exitRuntime, err
	}
	return exitOK, nil
}

func readSocket(conn *ws.Conn, out io.Writer) error {
	for {
		var msg received
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		printReceived(out, msg)
	}
}

type jsonWriter interface {
	WriteJSON(v any) error
}

type inputLine struct {
	text string
	err  error
}

// scanLines feeds stdin lines to the returned channel, closed on EOF.
// A read error is delivered as the last item.
func scanLines(in io.Reader) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- inputLine{text: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			lines <- inputLine{err: err}
		}
	}()
	return lines
}

// sendLines sends each "@to text" line as a message until ctx is done.
// The end of the input ends the session with io.EOF.
func sendLines(ctx context.Context, conn jsonWriter, uid string, lines <-chan inputLine) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if line.err != nil {
				return line.err
			}
			to, text, valid := parseLine(line.text)
			if !valid {
				color.Warn.Println(`usage: @recipient message`)
				continue
			}
			err := conn.WriteJSON(frame{Event: "message", Data: map[string]string{
				"fromUid": uid,
				"toUid":   to,
				"text":    text,
			}})
			if err != nil {
				return err
			}
		}
	}
}

func parseLine(line string) (to, text string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@") {
		return "", "", false
	}
	to, text, found := strings.Cut(line[1:], " ")
	text = strings.TrimSpace(text)
	if !found || to == "" || text == "" {
		return "", "", false
	}
	return to, text, true
}

func printReceived(out io.Writer, msg received) {
	from, text := msg.Data.FromUID, msg.Data.Message
	if from == "" {
		from, text = msg.Data.From, msg.Data.Text
	}
	header := color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf("[%s]", from))
	if !msg.Data.CreatedAt.IsZero() {
		header = fmt.Sprintf("%s %s", msg.Data.CreatedAt.Local().Format("15:04:05"), header)
	}
	_, _ = fmt.Fprintf(out, "%s %s\n", header, text)
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ws.ErrCloseSent) ||
		ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed)
}
