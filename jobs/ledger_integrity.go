package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

var issueKinds = []string{
	string(journals.IssueUnbalanced),
	string(journals.IssueTooFewLines),
	string(journals.IssueDuplicateCorrelativo),
	string(journals.IssueCorrelativoGap),
}

// LedgerScanner reads the integrity state of company ledgers.
type LedgerScanner interface {
	Companies(ctx context.Context) ([]int64, error)
	Scan(ctx context.Context, companyID int64) ([]journals.Issue, error)
}

// LedgerIntegrityJob scans company ledgers and publishes the findings as metrics.
type LedgerIntegrityJob struct {
	Scanner     LedgerScanner
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
}

// NewLedgerIntegrityJob constructs the job handler.
func NewLedgerIntegrityJob(scanner LedgerScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Scanner: scanner, Logger: logger, Metrics: metrics, Concurrency: 4}
}

// Handle executes the integrity scan task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Scanner == nil {
		return errors.New("ledger integrity: scanner not configured")
	}
	var payload LedgerIntegrityPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload.CompanyID)
	return err
}

// Run scans one company, or every company when companyID is zero, and returns the issues found.
func (j *LedgerIntegrityJob) Run(ctx context.Context, companyID int64) ([]journals.Issue, error) {
	tracker := j.metrics().Track(TaskLedgerIntegrity)
	issues, err := j.run(ctx, companyID)
	return issues, tracker.End(err)
}

func (j *LedgerIntegrityJob) run(ctx context.Context, companyID int64) ([]journals.Issue, error) {
	companies := []int64{companyID}
	if companyID == 0 {
		ids, err := j.Scanner.Companies(ctx)
		if err != nil {
			j.log().Error("list companies", slog.Any("error", err))
			return nil, err
		}
		companies = ids
	}
	if len(companies) == 0 {
		j.log().Info("no companies to scan")
		return nil, nil
	}

	start := time.Now()
	found := make([][]journals.Issue, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	if j.Concurrency > 0 {
		g.SetLimit(j.Concurrency)
	}
	for i, id := range companies {
		g.Go(func() error {
			issues, err := j.Scanner.Scan(gctx, id)
			if err != nil {
				return fmt.Errorf("scan company %d: %w", id, err)
			}
			found[i] = issues
			j.publish(id, issues)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		j.log().Error("integrity scan failed", slog.Any("error", err))
		return nil, err
	}

	var all []journals.Issue
	for _, issues := range found {
		all = append(all, issues...)
	}
	for _, issue := range all {
		j.log().Warn("ledger integrity issue",
			slog.Int64("company_id", issue.CompanyID),
			slog.String("kind", string(issue.Kind)),
			slog.Int64("correlativo", issue.Correlativo),
			slog.String("detail", issue.Detail))
	}
	j.log().Info("ledger integrity scan finished",
		slog.Int("companies", len(companies)),
		slog.Int("issues", len(all)),
		slog.Duration("duration", time.Since(start)))
	return all, nil
}

func (j *LedgerIntegrityJob) publish(companyID int64, issues []journals.Issue) {
	counts := make(map[string]int, len(issueKinds))
	for _, issue := range issues {
		counts[string(issue.Kind)]++
	}
	j.metrics().SetIntegrityIssues(companyID, issueKinds, counts)
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerIntegrityJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
