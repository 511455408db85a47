package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/xpanvictor/annotator/internal/database"
	"github.com/xpanvictor/annotator/internal/ingest"
)

// enqueue is a development aid that plays the recognizer's part.
func enqueueCommand(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue FILE...",
		Short: "Validate recording messages and push them onto the redis queue",
		Long:  `Each FILE holds one JSON recording message; "-" reads standard input.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := database.NewRedis(rt.cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()
			queue := ingest.NewRedisQueue(client, rt.cfg.Queue.Key, rt.cfg.Queue.PollTimeout)

			for _, name := range args {
				raw, err := readInput(cmd.InOrStdin(), name)
				if err != nil {
					return err
				}
				msg, normalized, err := normalizeMessage(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				if err := queue.Push(normalized); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				rt.logger.Infof("queued %s as recording %d (model %s)", name, ingest.IDFromUUID(msg.ID), msg.Model)
			}
			return nil
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

// normalizeMessage validates raw and re-encodes it, dropping unknown fields
// and whitespace so the queue only ever carries the canonical wire form.
func normalizeMessage(raw []byte) (*ingest.Message, []byte, error) {
	msg, err := ingest.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	normalized, err := ingest.Encode(msg)
	if err != nil {
		return nil, nil, err
	}
	return msg, normalized, nil
}
