package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/walletflow/internal/csvimport"
	"github.com/dvloznov/walletflow/internal/domain"
	"github.com/dvloznov/walletflow/internal/gcs"
	"github.com/dvloznov/walletflow/internal/gcsuploader"
	infraBQ "github.com/dvloznov/walletflow/internal/infra/bigquery"
	"github.com/dvloznov/walletflow/internal/logger"
	"github.com/dvloznov/walletflow/internal/mermaid"
	"github.com/dvloznov/walletflow/internal/pipeline"
	"github.com/dvloznov/walletflow/internal/renderer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "decode":
		err = runDecode(os.Args[2:], os.Stdout)
	case "check":
		err = runCheck(os.Args[2:], os.Stdout)
	case "upload":
		err = runUpload(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Walletflow CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  walletflow <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  render    Render a Koinly export as a Mermaid sequence diagram")
	fmt.Println("  decode    Print the diagram behind a mermaid.live share link")
	fmt.Println("  check     Check that a CSV is a Koinly export and list its currencies")
	fmt.Println("  upload    Upload a local Koinly export to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'walletflow <command> -h' for more information on a command.")
}

// newLogger writes to stderr so that stdout carries only command output.
func newLogger(level string) zerolog.Logger {
	return logger.NewConsole(os.Stderr, level)
}

func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	in := fs.String("in", "", "Koinly CSV export: local path or gs:// URI")
	bqTable := fs.String("bq-table", "", "BigQuery table of exported rows: project.dataset.table")
	bqProject := fs.String("bq-project", "", "Project billed for BigQuery reads (defaults to the table's project)")
	startDate := fs.String("start-date", "", "First transaction date read from -bq-table (YYYY-MM-DD)")
	endDate := fs.String("end-date", "", "Last transaction date read from -bq-table (YYYY-MM-DD)")
	period := fs.String("period", string(pipeline.DefaultPeriod), "Aggregation period: none, day, month or year")
	offset := fs.Bool("offset", true, "Net opposite transfers within each period")
	notes := fs.Bool("notes", false, "Add balance-change notes to each period")
	currencies := fs.String("currencies", "", "Comma separated currencies to keep, e.g. BTC,ETH")
	out := fs.String("out", "", "Write the diagram to a local path or gs:// URI instead of stdout")
	showURL := fs.Bool("url", false, "Also print the mermaid.live share link")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*in == "") == (*bqTable == "") {
		return errors.New("exactly one of -in or -bq-table is required")
	}
	aggregatePeriod, err := pipeline.ParsePeriod(*period)
	if err != nil {
		return err
	}

	log := newLogger(*logLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var records []domain.TransactionRecord
	if *in != "" {
		records, err = loadExport(ctx, *in)
	} else {
		records, err = loadTable(ctx, *bqTable, *bqProject, *startDate, *endDate)
	}
	if err != nil {
		return err
	}

	service := renderer.NewService()
	result, err := service.Render(ctx, renderer.Request{
		Records: records,
		Options: pipeline.Options{
			Offset:          offset,
			AggregatePeriod: aggregatePeriod,
			ShowNotes:       notes,
		},
		Currencies: csvimport.SplitCodes(*currencies),
	})
	if err != nil {
		return err
	}

	switch {
	case *out == "":
		fmt.Fprintln(stdout, result.Diagram)
	case gcs.IsGCSURI(*out):
		if err := gcsuploader.UploadBytes(ctx, *out, []byte(result.Diagram), gcs.DiagramContentType); err != nil {
			return err
		}
		log.Info().Str("output_uri", *out).Msg("Diagram uploaded")
	default:
		if err := os.WriteFile(*out, []byte(result.Diagram), 0o644); err != nil {
			return fmt.Errorf("runRender: write %s: %w", *out, err)
		}
		log.Info().Str("path", *out).Msg("Diagram written")
	}

	if *showURL {
		fmt.Fprintln(stdout, result.LiveURL)
	}
	return nil
}

// loadExport reads a Koinly CSV from a local path or gs:// URI.
func loadExport(ctx context.Context, in string) ([]domain.TransactionRecord, error) {
	if gcs.IsGCSURI(in) {
		sources := &renderer.Sources{Storage: gcsuploader.NewGCSStorageService()}
		return sources.Load(ctx, in)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("loadExport: %w", err)
	}
	records, err := csvimport.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loadExport: %s: %w", filepath.Base(in), err)
	}
	return records, nil
}

// loadTable reads exported rows from BigQuery.
func loadTable(ctx context.Context, table, project, start, end string) ([]domain.TransactionRecord, error) {
	ref, err := infraBQ.ParseTableRef(table)
	if err != nil {
		return nil, err
	}
	var filter infraBQ.RecordFilter
	if filter.StartDate, err = infraBQ.ParseDate(start); err != nil {
		return nil, err
	}
	if filter.EndDate, err = infraBQ.ParseDate(end); err != nil {
		return nil, err
	}

	if project == "" {
		project = ref.ProjectID
	}
	repo, err := infraBQ.NewBigQueryRecordRepository(ctx, project)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	return repo.ListRecords(ctx, ref, filter)
}

func runDecode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: walletflow decode <share link or payload>")
	}

	diagram, err := mermaid.Decode(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, diagram)
	return nil
}

func runCheck(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	in := fs.String("in", "", "Path to a local CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("runCheck: %w", err)
	}

	records, err := csvimport.Parse(bytes.NewReader(data))
	if errors.Is(err, csvimport.ErrNotKoinlyCSV) || errors.Is(err, csvimport.ErrMissingColumn) {
		fmt.Fprintf(stdout, "%s: not a Koinly transaction export (%v)\n", filepath.Base(*in), err)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: Koinly transaction export\n", filepath.Base(*in))
	fmt.Fprintf(stdout, "Records:    %d\n", len(records))
	fmt.Fprintf(stdout, "Currencies: %s\n", strings.Join(csvimport.Currencies(records), ", "))
	return nil
}

func runUpload(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to exports/<filename>)")
	filePath := fs.String("file", "", "Path to local Koinly CSV export")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *bucketName == "" || *filePath == "" {
		return errors.New("usage: walletflow upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = "exports/" + filepath.Base(*filePath)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("runUpload: %w", err)
	}
	if _, err := csvimport.Parse(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("runUpload: refusing to upload %s: %w", filepath.Base(*filePath), err)
	}

	log := newLogger(*logLevel)
	ctx := logger.WithContext(context.Background(), log)

	uri := gcs.Scheme + *bucketName + "/" + *objectName
	log.Info().
		Str("file", *filePath).
		Str("gcs_uri", uri).
		Msg("Uploading export to GCS")

	if err := gcsuploader.UploadBytes(ctx, uri, data, "text/csv"); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Uploaded %s to %s\n", *filePath, uri)
	return nil
}
