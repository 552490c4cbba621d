package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/storefront-orders/internal/analytics"
	"github.com/joao-fontenele/storefront-orders/internal/dashboard"
	"github.com/joao-fontenele/storefront-orders/internal/lifecycle"
	"github.com/joao-fontenele/storefront-orders/internal/logging"
)

const openStatuses = "pending,paid,processing,ready_for_pickup,shipped"

func main() {
	logger := logging.New("dashboard")

	baseURL := flag.String("url", envOr("GATEWAY_URL", "http://localhost:8080"), "gateway base URL")
	token := flag.String("token", os.Getenv("ADMIN_TOKEN"), "admin bearer token")
	period := flag.String("period", "30d", "analytics period: 24h, 7d, 30d, 90d, 1y, all")
	groupBy := flag.String("group-by", "day", "analytics bucket: hour, day, week, month")
	interval := flag.Duration("interval", 30*time.Second, "analytics refresh interval")
	once := flag.Bool("once", false, "print one report and exit")
	flag.Parse()

	if *token == "" {
		logger.Error("an admin token is required, set -token or ADMIN_TOKEN")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := dashboard.NewClient(
		dashboard.Session{BaseURL: *baseURL, Token: *token},
		&http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	)

	page, err := client.Orders(ctx, url.Values{"status": {openStatuses}, "limit": {"50"}})
	if err != nil {
		logger.Error("failed to list open orders", "error", err)
		os.Exit(1)
	}
	printOrders(os.Stdout, page, time.Now())

	fetcher := dashboard.NewFetcher(client.Analytics, dashboard.DefaultFetcherConfig(), logger)
	defer fetcher.Close()

	params := url.Values{"period": {*period}, "group_by": {*groupBy}}
	fetcher.Submit(params)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetcher.Submit(params)
		case result := <-fetcher.Results():
			if result.Err != nil {
				logger.Error("failed to fetch analytics", "error", result.Err, "request_id", result.ID)
			} else {
				printReport(os.Stdout, result.Value)
			}
			if *once {
				if result.Err != nil {
					os.Exit(1)
				}
				return
			}
		}
	}
}

func printOrders(w io.Writer, page dashboard.OrderPage, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ORDER\tSTATUS\tCUSTOMER\tTOTAL\tAGE\tSEVERITY\n")
	for _, o := range page.Orders {
		age, severity := "-", "-"
		if elapsed, err := lifecycle.Classify(o.CreatedAt, now); err == nil {
			age, severity = elapsed.Label, elapsed.Severity.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderNumber, o.Status, o.Customer.Email, o.Total.StringFixed(2), age, severity)
	}
	_, _ = fmt.Fprintf(tw, "\n%d open orders\n", page.Total)
	_ = tw.Flush()
}

func printReport(w io.Writer, report analytics.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\nANALYTICS %s by %s (generated %s)\n", report.Period, report.GroupBy, report.GeneratedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(tw, "BUCKET\tORDERS\tREVENUE\tAVG\n")
	for _, row := range report.Buckets {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", row.Key, row.OrderCount, row.Revenue.StringFixed(2), row.AvgOrderValue.StringFixed(2))
	}
	_, _ = fmt.Fprintf(tw, "TOTAL\t%d\t%s\t%s\n", report.Totals.OrderCount, report.Totals.Revenue.StringFixed(2), report.Totals.AvgOrderValue.StringFixed(2))
	_ = tw.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
