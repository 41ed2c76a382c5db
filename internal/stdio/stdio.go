package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"news_hub/internal/dispatch"
	"news_hub/internal/logger"
)

const maxLineSize = 4 << 20

// Dispatcher - то, что нужно циклу от диспетчера.
type Dispatcher interface {
	DispatchBytes(ctx context.Context, data []byte) dispatch.Envelope
}

// Serve читает по одному конверту на строку из r, обрабатывает и пишет ответ
// одной строкой в w. Пустые строки пропускаются. Возвращает nil, когда вход
// закончился или ctx отменён.
func Serve(ctx context.Context, d Dispatcher, r io.Reader, w io.Writer) error {
	log := logger.Log.WithField("transport", "stdio")
	log.Info("Stdio transport started")

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	out := bufio.NewWriter(w)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping stdio transport by context")
			return nil

		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read input: %w", err)
				}
				log.Info("Input closed, stopping stdio transport")
				return nil
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			resp := d.DispatchBytes(ctx, line)
			data, err := dispatch.Encode(resp)
			if err != nil {
				log.WithError(err).Error("Failed to encode response")
				continue
			}
			if _, err := out.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			if err := out.Flush(); err != nil {
				return fmt.Errorf("flush response: %w", err)
			}
		}
	}
}
