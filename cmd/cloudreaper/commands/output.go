package commands

import (
	"bytes"
	"context"
	"fmt"

	"github.com/DrSkyle/cloudreaper/pkg/engine/report"
	awsprovider "github.com/DrSkyle/cloudreaper/pkg/provider/aws"
	"github.com/DrSkyle/cloudreaper/pkg/storage"
)

// archiveReport serializes the run report to the destination, which is
// either a local path or an s3://bucket/key URI.
func archiveReport(ctx context.Context, client *awsprovider.Client, dest string, rep *report.Report) error {
	var buf bytes.Buffer
	if err := rep.WriteJSON(&buf); err != nil {
		return fmt.Errorf("serializing report: %w", err)
	}

	archive, name, err := storage.Resolve(client.Config, dest)
	if err != nil {
		return err
	}
	if err := archive.Store(ctx, name, buf.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", dest)
	return nil
}
