// Package archive persists crawl results and market reports after a request
// has been served. Every sink is optional and failures never reach the caller
// of the primary operation; the API logs them and moves on.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
	"github.com/JakeFAU/market-potential-crawler/internal/market"
	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
	"github.com/JakeFAU/market-potential-crawler/internal/publisher"
	"github.com/JakeFAU/market-potential-crawler/internal/storage"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/postgres"
)

// Event names published by the archiver.
const (
	EventCrawlArchived = "crawl.archived"
	EventReportReady   = "market_report.ready"
)

// Metric kinds.
const (
	kindCrawl  = "crawl"
	kindReport = "report"
)

// IDGenerator issues archive object IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher digests archive payloads.
type Hasher interface {
	Hash([]byte) (string, error)
}

// Clock supplies archive timestamps.
type Clock interface {
	Now() time.Time
}

// ReportSaver persists market reports.
type ReportSaver interface {
	SaveReport(ctx context.Context, rec postgres.ReportRecord) error
}

// Deps wires the archiver's collaborators. Blobs, Reports, and Publisher may
// be nil, which disables that sink.
type Deps struct {
	Blobs     storage.BlobStore
	Reports   ReportSaver
	Publisher publisher.Publisher
	IDs       IDGenerator
	Hasher    Hasher
	Clock     Clock
	Logger    *zap.Logger
}

// Archiver writes crawl envelopes to blob storage and reports to Postgres.
type Archiver struct {
	deps   Deps
	prefix string
}

// New builds an Archiver. IDs, Hasher, and Clock are required.
func New(deps Deps, prefix string) (*Archiver, error) {
	if deps.IDs == nil || deps.Hasher == nil || deps.Clock == nil {
		return nil, fmt.Errorf("archive requires id generator, hasher, and clock")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Archiver{deps: deps, prefix: strings.Trim(prefix, "/")}, nil
}

// CrawlEnvelope is the JSON document written for each crawl.
type CrawlEnvelope struct {
	ID        string         `json:"id"`
	RootURL   string         `json:"root_url"`
	CrawledAt time.Time      `json:"crawled_at"`
	PageCount int            `json:"page_count"`
	Pages     []ArchivedPage `json:"pages"`
}

// ArchivedPage is a crawled page plus the digest of its text, so successive
// crawls of a site can be compared page by page.
type ArchivedPage struct {
	crawler.PageRecord
	TextSHA256 string `json:"text_sha256"`
}

// CrawlReceipt describes where a crawl envelope was stored.
type CrawlReceipt struct {
	ID        string `json:"id"`
	URI       string `json:"uri"`
	SHA256    string `json:"sha256"`
	PageCount int    `json:"page_count"`
}

// ReportNotice is the payload published when a report has been stored.
type ReportNotice struct {
	ID         string    `json:"id"`
	AreaName   string    `json:"area_name"`
	Prefecture string    `json:"prefecture"`
	City       string    `json:"city"`
	Level      string    `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArchiveCrawl stores the crawl envelope under <prefix>/crawls/<date>/<id>.json,
// where date is taken in the clock's location.
// A nil Archiver or missing blob store is a no-op.
func (a *Archiver) ArchiveCrawl(ctx context.Context, rootURL string, pages []crawler.PageRecord) (receipt CrawlReceipt, err error) {
	if a == nil || a.deps.Blobs == nil {
		return CrawlReceipt{}, nil
	}
	defer func() { metrics.ObserveArchive(kindCrawl, err) }()

	id, err := a.deps.IDs.NewID()
	if err != nil {
		return CrawlReceipt{}, fmt.Errorf("archive crawl: %w", err)
	}
	now := a.deps.Clock.Now()
	archived := make([]ArchivedPage, 0, len(pages))
	for _, p := range pages {
		sum, err := a.deps.Hasher.Hash([]byte(p.Text))
		if err != nil {
			return CrawlReceipt{}, fmt.Errorf("hash page %s: %w", p.URL, err)
		}
		archived = append(archived, ArchivedPage{PageRecord: p, TextSHA256: sum})
	}
	env := CrawlEnvelope{ID: id, RootURL: rootURL, CrawledAt: now, PageCount: len(pages), Pages: archived}
	data, err := json.Marshal(env)
	if err != nil {
		return CrawlReceipt{}, fmt.Errorf("marshal crawl envelope: %w", err)
	}
	sum, err := a.deps.Hasher.Hash(data)
	if err != nil {
		return CrawlReceipt{}, fmt.Errorf("hash crawl envelope: %w", err)
	}

	objectPath := a.objectPath("crawls", now.Format("2006-01-02"), id+".json")
	uri, err := a.deps.Blobs.PutObject(ctx, objectPath, "application/json", bytes.NewReader(data))
	if err != nil {
		return CrawlReceipt{}, fmt.Errorf("store crawl envelope: %w", err)
	}
	receipt = CrawlReceipt{ID: id, URI: uri, SHA256: sum, PageCount: len(pages)}
	a.deps.Logger.Info("crawl archived",
		zap.String("id", id),
		zap.String("uri", uri),
		zap.Int("pages", len(pages)),
	)
	a.publish(ctx, EventCrawlArchived, receipt)
	return receipt, nil
}

// ArchiveReport inserts the report and announces it. A nil Archiver is a no-op.
func (a *Archiver) ArchiveReport(ctx context.Context, report market.Report) (err error) {
	if a == nil || (a.deps.Reports == nil && a.deps.Publisher == nil) {
		return nil
	}
	defer func() { metrics.ObserveArchive(kindReport, err) }()

	id, err := a.deps.IDs.NewID()
	if err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	now := a.deps.Clock.Now()
	if a.deps.Reports != nil {
		rec := postgres.ReportRecord{ID: id, CreatedAt: now, Report: report}
		if err := a.deps.Reports.SaveReport(ctx, rec); err != nil {
			return fmt.Errorf("save report %s: %w", report.AreaName, err)
		}
	}
	a.publish(ctx, EventReportReady, ReportNotice{
		ID:         id,
		AreaName:   report.AreaName,
		Prefecture: report.Prefecture,
		City:       report.City,
		Level:      report.Potential.Level,
		CreatedAt:  now,
	})
	return nil
}

// ArchiveReports archives each report, logging failures individually.
func (a *Archiver) ArchiveReports(ctx context.Context, reports []market.Report) {
	for _, r := range reports {
		if err := a.ArchiveReport(ctx, r); err != nil {
			a.deps.Logger.Warn("report archive failed", zap.String("area", r.AreaName), zap.Error(err))
		}
	}
}

func (a *Archiver) publish(ctx context.Context, event string, payload any) {
	if a.deps.Publisher == nil {
		return
	}
	id, err := a.deps.Publisher.Publish(ctx, event, payload)
	if err != nil {
		a.deps.Logger.Warn("publish failed", zap.String("event", event), zap.Error(err))
		return
	}
	a.deps.Logger.Debug("published", zap.String("event", event), zap.String("message_id", id))
}

func (a *Archiver) objectPath(parts ...string) string {
	if a.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{a.prefix}, parts...)...)
}
