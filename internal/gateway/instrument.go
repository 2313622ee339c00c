package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/slmtnm/s4json/internal/metrics"
)

type instrumented struct {
	next Gateway
}

// Instrument records call counts and latency for every operation of g.
func Instrument(g Gateway) Gateway {
	return &instrumented{next: g}
}

func (i *instrumented) ListBuckets(ctx context.Context) ([]string, error) {
	defer observe("list_buckets", time.Now())
	buckets, err := i.next.ListBuckets(ctx)
	count("list_buckets", err)
	return buckets, err
}

func (i *instrumented) ListFiles(ctx context.Context, bucket string) ([]FileEntry, error) {
	defer observe("list_files", time.Now())
	files, err := i.next.ListFiles(ctx, bucket)
	count("list_files", err)
	return files, err
}

func (i *instrumented) GetContent(ctx context.Context, path string) (string, error) {
	defer observe("get_content", time.Now())
	content, err := i.next.GetContent(ctx, path)
	count("get_content", err)
	return content, err
}

func observe(op string, start time.Time) {
	metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func count(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	metrics.GatewayCalls.WithLabelValues(op, outcome).Inc()
}
