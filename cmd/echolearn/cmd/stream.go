package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// streamOptions controls how an audio file is sent over the live channel
type streamOptions struct {
	server     string
	token      string
	chunkSize  int
	sampleRate int
	encoding   string
	delay      time.Duration
	timeout    time.Duration
}

var streamOpts streamOptions

var streamCmd = &cobra.Command{
	Use:   "stream <session-id> <audio-file>",
	Short: "Stream an audio file to a session over WebSocket",
	Long: `Send an audio file to a running server as live audio chunks and print the
transcription and sign translation the server returns.`,
	Args: cobra.ExactArgs(2),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().StringVar(&streamOpts.server, "server", "ws://localhost:8000", "server base URL")
	streamCmd.Flags().StringVar(&streamOpts.token, "token", "", "access token (default: $ECHOLEARN_TOKEN)")
	streamCmd.Flags().IntVar(&streamOpts.chunkSize, "chunk-size", 4096, "bytes per audio chunk")
	streamCmd.Flags().IntVar(&streamOpts.sampleRate, "sample-rate", 16000, "audio sample rate in Hz")
	streamCmd.Flags().StringVar(&streamOpts.encoding, "encoding", "LINEAR16", "audio encoding")
	streamCmd.Flags().DurationVar(&streamOpts.delay, "delay", 100*time.Millisecond, "pause between chunks")
	streamCmd.Flags().DurationVar(&streamOpts.timeout, "timeout", time.Minute, "time to wait for the translation")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	audio, err := os.ReadFile(args[1])
	if err != nil {
		printError("failed to read audio file", err)
		return err
	}

	opts := streamOpts
	if opts.token == "" {
		opts.token = os.Getenv("ECHOLEARN_TOKEN")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := streamAudio(ctx, args[0], audio, opts, cmd.OutOrStdout()); err != nil {
		printError("stream failed", err)
		return err
	}
	return nil
}

// streamAudio sends audio as base64 chunks, the last one final, and prints
// every server message until the sign translation arrives.
func streamAudio(ctx context.Context, sessionID string, audio []byte, opts streamOptions, out io.Writer) error {
	if len(audio) == 0 {
		return fmt.Errorf("audio file is empty")
	}
	if opts.chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}

	u, err := url.Parse(strings.TrimSuffix(opts.server, "/") + "/ws/" + url.PathEscape(sessionID))
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	headers := http.Header{}
	if opts.token != "" {
		headers.Add("Authorization", "Bearer "+opts.token)
	}

	c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer c.Close()

	done := make(chan error, 1)

	// Start a goroutine to read messages from the server
	go func() {
		done <- readUntilTranslation(c, out)
	}()

	total := (len(audio) + opts.chunkSize - 1) / opts.chunkSize
	for i := 0; i < total; i++ {
		start := i * opts.chunkSize
		end := start + opts.chunkSize
		if end > len(audio) {
			end = len(audio)
		}

		msg := map[string]interface{}{
			"type":        "audio_chunk",
			"audio_data":  base64.StdEncoding.EncodeToString(audio[start:end]),
			"sample_rate": opts.sampleRate,
			"encoding":    opts.encoding,
			"is_final":    i == total-1,
		}
		if err := c.WriteJSON(msg); err != nil {
			return fmt.Errorf("send chunk %d: %w", i, err)
		}

		if opts.delay > 0 && i < total-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.delay):
			}
		}
	}

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	select {
	case err := <-done:
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("no translation received within %s", timeout)
	}
}

func readUntilTranslation(c *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg struct {
			Type    string          `json:"type"`
			Text    string          `json:"text"`
			Code    string          `json:"error_code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("unexpected message %q: %w", data, err)
		}

		switch msg.Type {
		case "transcription":
			fmt.Fprintf(out, "transcription: %s\n", msg.Text)
		case "asl_translation":
			fmt.Fprintf(out, "asl_translation: %s\n", msg.Data)
			return nil
		case "error":
			return fmt.Errorf("server error %s: %s", msg.Code, msg.Message)
		}
	}
}
