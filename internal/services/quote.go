package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maxldruck/printcalc/internal/mq"
	"github.com/maxldruck/printcalc/internal/render"
	"github.com/maxldruck/printcalc/internal/storage"
	"github.com/maxldruck/printcalc/internal/store"
	"github.com/maxldruck/printcalc/types"
	"go.uber.org/zap"
)

// Quote export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var contentTypes = map[string]string{
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Document is a rendered quote ready for download.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// QuoteService renders saved projects as customer quotes.
type QuoteService struct {
	projects *ProjectService
	catalog  CatalogRepository
	archive  *storage.Storage
	events   *mq.Publisher
	brand    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewQuoteService(
	projects *ProjectService,
	catalog CatalogRepository,
	archive *storage.Storage,
	events *mq.Publisher,
	brand string,
	logger *zap.Logger,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		projects: projects,
		catalog:  catalog,
		archive:  archive,
		events:   events,
		brand:    brand,
		logger:   logger,
		now:      time.Now,
	}
}

// Export renders project id of account in format. When an archive is
// configured the document is also stored there; archive failures are
// logged and do not fail the export.
func (s *QuoteService) Export(ctx context.Context, account types.Account, id int64, format string) (Document, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	contentType, ok := contentTypes[format]
	if !ok {
		return Document{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, format)
	}

	p, err := s.projects.Get(ctx, account, id)
	if err != nil {
		return Document{}, err
	}

	opts := render.Options{
		Brand:   s.brand,
		Account: account.Username,
		Date:    s.now(),
	}
	if name := strings.TrimSpace(p.FailedMaterialName); name != "" {
		m, err := s.catalog.FindMaterialByName(ctx, name)
		switch {
		case err == nil:
			opts.FailedMaterial = &m
		case errors.Is(err, store.ErrNotFound):
			s.logger.Debug("failed filament material no longer in catalog", zap.String("material", name))
		default:
			return Document{}, err
		}
	}
	q := render.BuildQuote(p, opts)

	var buf bytes.Buffer
	switch format {
	case FormatPDF:
		err = render.PDF(q, &buf)
	case FormatXLSX:
		err = render.XLSX(q, &buf)
	}
	if err != nil {
		return Document{}, fmt.Errorf("render %s quote: %w", format, err)
	}

	doc := Document{
		Filename:    QuoteFilename(p, format),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}
	s.store(ctx, account, p.ID, format, doc)
	s.events.Emit(ctx, mq.Event{
		Type:      mq.EventQuoteExported,
		Account:   account.Username,
		ProjectID: p.ID,
		Data:      map[string]any{"format": format, "total": q.Total},
	})
	return doc, nil
}

func (s *QuoteService) store(ctx context.Context, account types.Account, id int64, format string, doc Document) {
	if s.archive == nil {
		return
	}
	key, err := LedgerKey(account)
	if err != nil {
		return
	}
	objectKey := storage.QuoteKey(key.String(), id, format)
	if err := s.archive.Put(ctx, objectKey, bytes.NewReader(doc.Data), int64(len(doc.Data)), doc.ContentType); err != nil {
		s.logger.Warn("archive quote failed",
			zap.String("account", account.Username),
			zap.String("key", objectKey),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("quote archived", zap.String("key", objectKey))
}

// QuoteFilename names the download after the project, e.g. "Vase.pdf".
func QuoteFilename(p types.Project, format string) string {
	name := strings.TrimSpace(p.Name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" {
		name = fmt.Sprintf("angebot-%d", p.ID+1000)
	}
	return name + "." + format
}
